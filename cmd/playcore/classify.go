package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/justchokingaround/playcore/internal/clipboard"
	"github.com/justchokingaround/playcore/internal/playerr"
	"github.com/justchokingaround/playcore/internal/source"
)

var (
	classifyJSON bool
	classifyOpen bool
)

type classification struct {
	Input     string            `json:"input"`
	Source    source.Descriptor `json:"source"`
	Canonical string            `json:"canonical_url"`
	Embed     string            `json:"embed_url"`
	Direct    bool              `json:"direct_media"`
	Ambiguous bool              `json:"ambiguous,omitempty"`
}

func classifyURL(c *source.Classifier, raw string) classification {
	d, err := c.ClassifyDetailed(raw)
	return classification{
		Input:     raw,
		Source:    d,
		Canonical: source.CanonicalURL(d),
		Embed:     source.EmbedURL(d),
		Direct:    c.LooksLikeDirectMedia(raw),
		Ambiguous: errors.Is(err, playerr.ErrClassificationAmbiguous),
	}
}

var classifyCmd = &cobra.Command{
	Use:   "classify [url]",
	Short: "Show how a video URL or embed snippet is classified",
	Long: `classify prints the source descriptor for a video URL, iframe snippet or
bare platform id. Without an argument the clipboard is read.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := ""
		if len(args) == 1 {
			raw = args[0]
		} else {
			text, err := clipboard.NewService(cfg.Advanced.ClipboardCommand, logger).Read(cmd.Context())
			if err != nil {
				return err
			}
			raw = text
		}
		if raw == "" {
			return errors.New("nothing to classify")
		}

		res := classifyURL(newClassifier(cfg), raw)

		if classifyJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
		} else {
			fmt.Printf("Source: %s\n", res.Source)
			fmt.Printf("Canonical URL: %s\n", res.Canonical)
			fmt.Printf("Embed URL: %s\n", res.Embed)
			fmt.Printf("Direct media: %t\n", res.Direct)
			if res.Ambiguous {
				fmt.Println("Warning: platform recognised but no video id found")
			}
		}

		if classifyOpen {
			if err := browser.OpenURL(res.Canonical); err != nil {
				return fmt.Errorf("failed to open browser: %w", err)
			}
		}
		return nil
	},
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print the result as JSON")
	classifyCmd.Flags().BoolVar(&classifyOpen, "open", false, "open the canonical URL in the browser")
}
