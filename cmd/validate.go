package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/glyphnode/internal/glyph"
	"github.com/smazurov/glyphnode/internal/resources"
	"github.com/spf13/cobra"
)

// AnimationCheck is the validation result of one animation file.
type AnimationCheck struct {
	Name   string `toml:"name"`
	Kind   string `toml:"kind"` // animation or call
	Frames int    `toml:"frames"`
	Error  string `toml:"error,omitempty"`
}

// ValidationReport is written by validate-animations --output.
type ValidationReport struct {
	Generated  string           `toml:"generated"`
	Resources  string           `toml:"resources"`
	Valid      int              `toml:"valid"`
	Invalid    int              `toml:"invalid"`
	Animations []AnimationCheck `toml:"animations"`
}

// ValidateAnimations checks every animation and call animation the provider
// serves against its supported pattern lengths and maxValue.
func ValidateAnimations(p *resources.Provider, maxValue int) (ValidationReport, error) {
	report := ValidationReport{
		Generated: time.Now().UTC().Format(time.RFC3339),
		Resources: p.Dir(),
	}
	if report.Resources == "" {
		report.Resources = "embedded"
	}
	lengths := p.SupportedPatternLengths()

	groups := []struct {
		kind string
		list func() ([]string, error)
		open func(string) (io.ReadCloser, error)
	}{
		{"animation", p.Animations, p.Animation},
		{"call", p.CallAnimations, p.CallAnimation},
	}
	for _, g := range groups {
		names, err := g.list()
		if err != nil {
			return report, fmt.Errorf("list %s animations: %w", g.kind, err)
		}
		for _, name := range names {
			check := AnimationCheck{Name: name, Kind: g.kind}
			check.Frames, err = checkOne(g.open, name, lengths, maxValue)
			if err != nil {
				check.Error = err.Error()
				report.Invalid++
			} else {
				report.Valid++
			}
			report.Animations = append(report.Animations, check)
		}
	}
	return report, nil
}

func checkOne(open func(string) (io.ReadCloser, error), name string, lengths []int, maxValue int) (int, error) {
	rc, err := open(name)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	return glyph.CheckAnimation(rc, lengths, maxValue)
}

// CreateValidateCmd creates the validate-animations command.
func CreateValidateCmd() *cobra.Command {
	var resourcesDir string
	var outputFile string
	var maxValue int
	var quiet bool

	cmd := &cobra.Command{
		Use:   "validate-animations",
		Short: "Check animation files against the supported pattern lengths",
		Long: `Parses every animation and call animation in the resources directory ` +
			`(layered over the built-in defaults) and reports frames with an unsupported ` +
			`length or a value outside 0..max.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := resources.Open(resourcesDir)
			if err != nil {
				return err
			}
			report, err := ValidateAnimations(p, maxValue)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, a := range report.Animations {
				switch {
				case a.Error != "":
					fmt.Fprintf(out, "FAIL  %-9s %-24s %s\n", a.Kind, a.Name, a.Error)
				case !quiet:
					fmt.Fprintf(out, "ok    %-9s %-24s %d frames\n", a.Kind, a.Name, a.Frames)
				}
			}
			fmt.Fprintf(out, "%d valid, %d invalid\n", report.Valid, report.Invalid)

			if outputFile != "" {
				data, err := toml.Marshal(report)
				if err != nil {
					return err
				}
				if err := os.WriteFile(outputFile, data, 0o644); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
			}
			if report.Invalid > 0 {
				return errors.New("invalid animations found")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&resourcesDir, "resources", "r", "", "Resources directory (empty for built-in defaults)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write a TOML report to this file")
	cmd.Flags().IntVar(&maxValue, "max", glyph.DefaultMaxPatternBrightness, "Largest allowed pattern value")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print failures")
	return cmd
}
