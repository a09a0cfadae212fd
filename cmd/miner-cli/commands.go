package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"videominer/internal/core/domain"
	gen "videominer/internal/generation"
)

var (
	sourceNames []string
	lang        string

	genAspect   string
	genDuration int
	genModel    string
	genMedia    []string
)

var errUnsuccessful = errors.New("extraction unsuccessful")

var mineCmd = &cobra.Command{
	Use:   "mine <product-url>",
	Short: "Mine videos related to a product across sources",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sources := domain.NewSourceSet(domain.AllSources()...)
		if cmd.Flags().Changed("sources") {
			sources = domain.NewSourceSet()
			for _, name := range sourceNames {
				src, ok := domain.ParseSource(name)
				if !ok {
					return fmt.Errorf("unknown source %q", name)
				}
				sources[src] = true
			}
		}

		ctx, a, _, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		result := a.Orchestrator.Mine(domain.WithLanguage(ctx, lang), args[0], sources)
		if err := printJSON(result); err != nil {
			return err
		}
		if !result.Success {
			return errors.New(domain.Message(domain.MsgProductNotFound, lang))
		}
		return nil
	},
}

var shopeeProductCmd = &cobra.Command{
	Use:   "shopee-product <url>",
	Short: "Extract product images from a Shopee link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a, _, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		result := a.Extractors.ExtractShopeeProduct(domain.WithLanguage(ctx, lang), args[0])
		return printResult(result, result.Success)
	},
}

var shopeeVideoCmd = &cobra.Command{
	Use:   "shopee-video <url>",
	Short: "Extract the product video from a Shopee link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a, _, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		result := a.Extractors.ExtractShopeeVideo(domain.WithLanguage(ctx, lang), args[0])
		return printResult(result, result.Success)
	},
}

var soraCmd = &cobra.Command{
	Use:   "sora <share-url>",
	Short: "Extract the video behind a Sora share page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a, _, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		result := a.Extractors.ExtractSoraVideo(domain.WithLanguage(ctx, lang), args[0])
		return printResult(result, result.Success)
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Create a video generation task and wait for the result",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a, logger, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		params := gen.CreateParams{
			Prompt:      strings.Join(args, " "),
			AspectRatio: genAspect,
			Duration:    genDuration,
			Model:       genModel,
			MediaFiles:  genMedia,
		}
		state, err := a.Poller.Run(ctx, params, func(s gen.State) {
			logger.Info().
				Str("task_id", s.TaskID).
				Str("status", string(s.Phase)).
				Int("progress", s.Progress).
				Msg("generation")
		})
		if err != nil {
			return err
		}
		if err := printJSON(state); err != nil {
			return err
		}
		if err := state.Err(); err != nil {
			if gen.IsFailed(err) {
				return errors.New(domain.Message(domain.MsgGenerationFailed, lang))
			}
			return errors.New(domain.UserMessage(err, lang))
		}
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <url>",
	Short: "Resolve a page to its media and save it in a job directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a, logger, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		logger.Info().Str("url", args[0]).Msg("starting download job")
		result, err := a.Download.RunJob(ctx, args[0])
		if err != nil {
			return fmt.Errorf("job failed: %w", err)
		}

		fmt.Println("\n=== Job Summary ===")
		fmt.Printf("Job ID:       %s\n", result.Job.ID)
		fmt.Printf("Source:       %s\n", result.Job.Source)
		fmt.Printf("Success:      %t\n", result.Success)
		fmt.Printf("Metadata:     %s\n", result.MetadataPath)
		fmt.Printf("Video:        %s\n", result.VideoPath)
		fmt.Printf("Completed At: %s\n", result.CompletedAt.Format("2006-01-02 15:04:05 UTC"))
		return nil
	},
}

func printResult(v any, success bool) error {
	if err := printJSON(v); err != nil {
		return err
	}
	if !success {
		return errUnsuccessful
	}
	return nil
}

func init() {
	for _, cmd := range []*cobra.Command{mineCmd, shopeeProductCmd, shopeeVideoCmd, soraCmd, generateCmd} {
		cmd.Flags().StringVar(&lang, "lang", "en", "Language for user-facing messages (en, vi)")
	}
	mineCmd.Flags().StringSliceVar(&sourceNames, "sources", nil, "Comma-separated sources to search (default all)")

	generateCmd.Flags().StringVar(&genAspect, "aspect-ratio", "", "Aspect ratio, e.g. 9:16")
	generateCmd.Flags().IntVar(&genDuration, "duration", 0, "Video length in seconds")
	generateCmd.Flags().StringVar(&genModel, "model", "", "Override the configured model")
	generateCmd.Flags().StringSliceVar(&genMedia, "media", nil, "Reference media URLs")
}
