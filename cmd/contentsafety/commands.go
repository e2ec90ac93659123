package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/contentsafety/internal/domain/safety"
	"github.com/yungbote/contentsafety/internal/platform/logger"
	"github.com/yungbote/contentsafety/internal/platform/shutdown"
	"github.com/yungbote/contentsafety/internal/safety/app"
	"github.com/yungbote/contentsafety/internal/safety/compliance"
	"github.com/yungbote/contentsafety/internal/safety/config"
	"github.com/yungbote/contentsafety/internal/safety/orchestrator"
	"github.com/yungbote/contentsafety/internal/safety/persona"
	"github.com/yungbote/contentsafety/internal/safety/rules"
)

// errViolations makes lint exit non-zero without printing an error line.
var errViolations = errors.New("banned phrases found")

type rootOptions struct {
	rulesLocation string
	logMode       string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "contentsafety",
		Short:         "Content safety and persona warning engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.rulesLocation, "rules", "", "Banned-phrase rule location (file, redis://, gs://, postgres://, sqlite://)")
	cmd.PersistentFlags().StringVar(&opts.logMode, "log-mode", "nop", "Log mode for one-shot commands (development, production, nop)")

	cmd.AddCommand(
		newServeCmd(opts),
		newCheckCmd(opts),
		newLintCmd(opts),
		newRulesCmd(opts),
	)
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.rulesLocation != "" {
				cfg.Rules.Location = opts.rulesLocation
			}
			log, err := logger.New(cfg.Env)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a, err := app.NewWithConfig(cfg, log)
			if err != nil {
				return err
			}
			ctx, stop := shutdown.NotifyContext(cmd.Context())
			defer stop()
			go shutdown.OnHangup(ctx, func() {
				log.Info("SIGHUP received, reloading rules")
				a.Store.Invalidate()
			})
			return a.Run(ctx)
		},
	}
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var (
		productPath string
		personas    []string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check one product for banned phrases and persona warnings",
		Example: `  contentsafety check --product product.json --persona pregnancy
  cat product.json | contentsafety check --product - --persona lactation,medication`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			product, err := readProduct(cmd.InOrStdin(), productPath)
			if err != nil {
				return err
			}
			store, log, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			orch := orchestrator.New(orchestrator.Options{
				Compliance: compliance.NewChecker(store, log),
				Persona:    persona.NewEngine(store, log),
				Log:        log,
			})
			tags := make([]safety.PersonaTag, 0, len(personas))
			for _, p := range personas {
				tags = append(tags, safety.PersonaTag(strings.TrimSpace(p)))
			}
			res, err := orch.Run(cmd.Context(), product, safety.NewTagSet(tags...))
			if err != nil {
				return err
			}
			out := checkOutput{
				Warnings:        res.Warnings,
				Violations:      res.Violations,
				PersonaWarnings: res.PersonaWarnings,
			}
			if res.Partial != nil {
				out.Degraded = res.Partial.Error()
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&productPath, "product", "", "Product JSON file, or - for stdin")
	cmd.Flags().StringSliceVar(&personas, "persona", nil, "Persona tags (repeatable or comma separated)")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

type checkOutput struct {
	Warnings        []safety.CombinedWarning `json:"warnings"`
	Violations      []safety.Violation       `json:"violations"`
	PersonaWarnings []safety.PersonaWarning  `json:"persona_warnings"`
	Degraded        string                   `json:"degraded,omitempty"`
}

func newLintCmd(opts *rootOptions) *cobra.Command {
	var (
		text string
		fix  bool
	)
	cmd := &cobra.Command{
		Use:   "lint [text]",
		Short: "Scan text for banned phrases",
		Long: `Scan text for banned phrases. Text comes from --text, the arguments, or stdin.
Exits 1 when a phrase is found, unless --fix is set, in which case the
rewritten text is printed instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := lintInput(cmd.InOrStdin(), text, args)
			if err != nil {
				return err
			}
			store, log, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			checker := compliance.NewChecker(store, log)
			violations, err := checker.Check(cmd.Context(), input)
			if err != nil {
				return err
			}
			if fix {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), compliance.Rewrite(input, violations))
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), violations); err != nil {
				return err
			}
			if len(violations) > 0 {
				return errViolations
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "Text to scan")
	cmd.Flags().BoolVar(&fix, "fix", false, "Print the text with suggestions applied")
	return cmd
}

func newRulesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the resolved rule set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()
			snap := store.Current(cmd.Context())
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"origin":         snap.Origin,
				"rejected":       snap.Rejected,
				"sources":        store.SourceNames(),
				"banned_phrases": snap.Rules,
				"persona_rules":  store.LoadPersonaRules(),
			})
		},
	}
}

func openStore(opts *rootOptions) (*rules.Store, *logger.Logger, error) {
	log, err := logger.New(opts.logMode)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	store := rules.NewStore(rules.StoreOptions{
		Sources: rules.ResolveSources(opts.rulesLocation, log),
		Log:     log,
	})
	return store, log, nil
}

func readProduct(stdin io.Reader, path string) (*safety.Product, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read product: %w", err)
	}
	var p safety.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse product: %w", err)
	}
	return &p, nil
}

func lintInput(stdin io.Reader, text string, args []string) (string, error) {
	switch {
	case text != "":
		return text, nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

