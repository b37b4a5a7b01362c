package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/smartintern/internal/document"
	"github.com/spigell/smartintern/internal/logger"
	"github.com/spigell/smartintern/internal/resume"
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse a resume file and print the candidate profile as JSON",
	Run: func(cmd *cobra.Command, _ []string) {
		parse(cmd)
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)

	addResumeFlags(parseCmd)
}

func addResumeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "resume file (pdf, doc or docx)")
	cmd.Flags().StringP("country", "c", "", "country where the candidate is looking for jobs")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("country")
}

func parse(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	svc, err := newServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("building services", zap.Error(err))
	}
	defer svc.Close()

	result, err := parseResumeFile(ctx, svc.parser, cmd.Flag("file").Value.String(), cmd.Flag("country").Value.String())
	if err != nil {
		logger.Fatal("parsing resume", zap.Error(err))
	}

	pretty, err := json.MarshalIndent(result.Profile, "", "  ")
	if err != nil {
		logger.Fatal("encoding profile", zap.Error(err))
	}
	fmt.Println(string(pretty))
}

func parseResumeFile(ctx context.Context, parser *resume.Parser, path, country string) (resume.ParseResult, error) {
	format, err := document.FormatFromFilename(path)
	if err != nil {
		return resume.ParseResult{}, err
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return resume.ParseResult{}, fmt.Errorf("reading resume file: %w", err)
	}

	return parser.Parse(ctx, document.Raw{Data: data, Format: format}, country)
}
