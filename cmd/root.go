package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "copycheck",
	Short: "A CLI tool for assessing copyright risk of generated images",
	Long: `Copycheck analyzes images for copyright risk. Each image is checked
with an AI style analysis (OpenAI, Gemini), a reverse image search, and
perceptual hash comparison against the search matches. The signals are
combined into a single SAFE / CAUTION / DANGER recommendation.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
