package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nfirscore/internal/config"
	"nfirscore/internal/core"
	"nfirscore/pkg/domain"
)

// readDocument loads an incident document from path, or stdin for "-".
func readDocument(cmd *cobra.Command, path string) (domain.IncidentDocument, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path) //nolint:gosec // operator supplied path
		if err != nil {
			return domain.IncidentDocument{}, fmt.Errorf("open document: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	var doc domain.IncidentDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return domain.IncidentDocument{}, fmt.Errorf("decode document: %w", err)
	}
	if doc.Workflow.Status == "" {
		doc.Workflow = domain.Workflow{Status: domain.StatusEditable}
	}
	return doc, nil
}

func writeOutput(cmd *cobra.Command, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return err
}

type classification struct {
	Code        string              `json:"code"`
	Description string              `json:"description,omitempty"`
	Known       bool                `json:"known"`
	Modules     []domain.ModuleKind `json:"modules"`
}

func (a *app) classifyCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "classify [code]",
		Short: "Show the description and module set of an incident type code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := domain.DefaultClassificationTable()
			describe := func(code string) classification {
				desc, ok := table.Describe(code)
				kinds := table.ModuleSetFor(code).Kinds()
				if kinds == nil {
					kinds = []domain.ModuleKind{}
				}
				return classification{Code: code, Description: desc, Known: ok, Modules: kinds}
			}
			if all || len(args) == 0 {
				codes := table.Codes()
				out := make([]classification, 0, len(codes))
				for _, code := range codes {
					out = append(out, describe(code))
				}
				return writeOutput(cmd, out)
			}
			return writeOutput(cmd, describe(args[0]))
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every known code")
	return cmd
}

type validationOutput struct {
	Findings     []domain.Finding `json:"findings"`
	LockEligible bool             `json:"lockEligible"`
	Label        string           `json:"label"`
	UnknownKeys  []string         `json:"unknownPolicyKeys,omitempty"`
}

func (a *app) validateCmd() *cobra.Command {
	var policyPath string
	cmd := &cobra.Command{
		Use:   "validate <document.json|->",
		Short: "Validate an incident document; exits 1 when findings exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			policy, err := config.LoadPolicy(policyPath)
			if err != nil {
				return err
			}
			if len(policy.Unknown) > 0 {
				a.logger.Warn("policy names unknown fields", zap.Strings("keys", policy.Unknown))
			}
			res := core.NewWorkflow(nil).Validate(doc, policy.Fields)
			findings := res.Findings
			if findings == nil {
				findings = []domain.Finding{}
			}
			if err := writeOutput(cmd, validationOutput{
				Findings:     findings,
				LockEligible: res.LockEligible(),
				Label:        domain.StatusLabel(doc.Workflow, res.Findings),
				UnknownKeys:  policy.Unknown,
			}); err != nil {
				return err
			}
			if !res.LockEligible() {
				return errFindings
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&policyPath, "policy", "", "department field policy YAML")
	return cmd
}

func (a *app) reshapeCmd() *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "reshape <document.json|->",
		Short: "Reshape a document's modules for a new incident type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			table := domain.DefaultClassificationTable()
			if discarded := table.DiscardedModules(doc, code); len(discarded) > 0 {
				names := make([]string, len(discarded))
				for i, kind := range discarded {
					names[i] = string(kind)
				}
				a.logger.Warn("reshape discards modules", zap.String("incident_type", code), zap.Strings("discarded", names))
			}
			return writeOutput(cmd, domain.RecomputeDerived(table.ReshapeModules(doc, code)))
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "target incident type code")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func (a *app) recomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute <document.json|->",
		Short: "Recompute derived section G and H counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd, domain.RecomputeDerived(doc))
		},
	}
}
