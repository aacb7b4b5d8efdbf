package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"mercator-hq/arbiter/pkg/cli"
	"mercator-hq/arbiter/pkg/policy"
	"mercator-hq/arbiter/pkg/policy/bundle"

	"github.com/spf13/cobra"
)

var policyFlags struct {
	tenant string
	format string
	input  policy.DecisionInput
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage tenant policies",
	Long: `Manage tenant policy sets.

Subcommands:
  import   - Replace tenant policy sets from YAML bundles
  list     - List a tenant's policies in evaluation order
  validate - Check YAML bundles without touching the store
  decide   - Evaluate a decision input against the stored policies`,
}

var policyImportCmd = &cobra.Command{
	Use:   "import <bundle-file-or-directory>",
	Short: "Replace tenant policy sets from YAML bundles",
	Long: `Import policy bundles. Each bundle replaces its tenant's policy set in one
transaction. A directory is validated as a whole before anything is
imported; tenants without a bundle are left untouched.

Examples:
  arbiter policy import ./policies
  arbiter policy import ./policies/acme.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runPolicyImport,
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a tenant's policies in evaluation order",
	Long: `List a tenant's policies ordered by priority (highest first), then
import position.

Examples:
  arbiter policy list --tenant acme
  arbiter policy list --tenant acme --format json`,
	Args: cobra.NoArgs,
	RunE: runPolicyList,
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate <bundle-file-or-directory>",
	Short: "Check YAML bundles without touching the store",
	Long: `Parse and validate policy bundles. Every failing field is reported.

Examples:
  arbiter policy validate ./policies`,
	Args: cobra.ExactArgs(1),
	RunE: runPolicyValidate,
}

var policyDecideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Evaluate a decision input against the stored policies",
	Long: `Ask the policy engine for a decision, exactly as POST /v1/decisions does.

Examples:
  arbiter policy decide --tenant acme --environment prd --agent agent-dba
  arbiter policy decide --tenant acme --use-case support --format json`,
	Args: cobra.NoArgs,
	RunE: runPolicyDecide,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyImportCmd, policyListCmd, policyValidateCmd, policyDecideCmd)

	for _, c := range []*cobra.Command{policyListCmd, policyDecideCmd} {
		c.Flags().StringVarP(&policyFlags.format, "format", "f", "text", "output format (text, json)")
	}

	policyListCmd.Flags().StringVarP(&policyFlags.tenant, "tenant", "t", "", "tenant ID")

	in := &policyFlags.input
	policyDecideCmd.Flags().StringVarP(&in.TenantID, "tenant", "t", "", "tenant ID")
	policyDecideCmd.Flags().StringVar(&in.UseCaseID, "use-case", "", "use case ID")
	policyDecideCmd.Flags().StringVar(&in.Environment, "environment", "", "environment")
	policyDecideCmd.Flags().StringVar(&in.AgentID, "agent", "", "agent ID")
	policyDecideCmd.Flags().StringVar(&in.IntentName, "intent", "", "intent name")
	policyDecideCmd.Flags().StringVar(&in.RiskLevel, "risk-level", "", "risk level")
	policyDecideCmd.Flags().StringVar(&in.DataSensitivity, "data-sensitivity", "", "data sensitivity")
	policyDecideCmd.Flags().StringVar(&in.Model, "model", "", "model")
}

// loadBundles reads a single bundle file or every bundle in a directory.
func loadBundles(path string) ([]*bundle.Bundle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	loader := bundle.NewLoader()
	if info.IsDir() {
		return loader.LoadDir(path)
	}
	b, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return []*bundle.Bundle{b}, nil
}

func runPolicyValidate(cmd *cobra.Command, args []string) error {
	bundles, err := loadBundles(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rules := 0
	for _, b := range bundles {
		rules += len(b.Policies)
		cli.Success(out, "%s: tenant %s, %d rules", b.Path, cli.Highlight(b.TenantID), len(b.Policies))
	}
	if len(bundles) == 0 {
		cli.Warn(out, "no bundles found in %s", args[0])
		return nil
	}
	cli.Success(out, "%d bundles valid (%d rules)", len(bundles), rules)
	return nil
}

func runPolicyImport(cmd *cobra.Command, args []string) error {
	bundles, err := loadBundles(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close(commandContext(cmd))

	out := cmd.OutOrStdout()
	ctx := commandContext(cmd)
	for _, b := range bundles {
		n, err := a.importer.Import(ctx, b.TenantID, b.Version, b.Policies)
		if err != nil {
			return cli.NewCommandError("policy import", fmt.Errorf("tenant %s: %w", b.TenantID, err))
		}
		cli.Success(out, "tenant %s: imported %d rules (version %q)", cli.Highlight(b.TenantID), n, b.Version)
	}
	return nil
}

func runPolicyList(cmd *cobra.Command, args []string) error {
	format, err := textOrJSON(policyFlags.format)
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close(commandContext(cmd))

	policies, err := a.importer.List(commandContext(cmd), policyFlags.tenant)
	if err != nil {
		return cli.NewCommandError("policy list", err)
	}
	if policies == nil {
		policies = []policy.Policy{}
	}
	return writeOutput(cmd.OutOrStdout(), format, policyTable(policies))
}

func runPolicyDecide(cmd *cobra.Command, args []string) error {
	format, err := textOrJSON(policyFlags.format)
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close(commandContext(cmd))

	decision, err := a.engine.Decide(commandContext(cmd), policyFlags.input)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), format, decisionView(decision))
}

// policyTable renders a policy list.
type policyTable []policy.Policy

func (t policyTable) RenderText(w io.Writer) error {
	if len(t) == 0 {
		_, err := fmt.Fprintln(w, "no policies")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tNAME\tEFFECT\tVERSION\tID")
	for _, p := range t {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.Priority, p.Name, p.Decision.Effect, p.Version, p.ID)
	}
	return tw.Flush()
}

// decisionView renders a decision.
type decisionView policy.Decision

func (d decisionView) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "effect: %s\n", cli.Highlight(string(d.Effect)))
	if d.PolicyName != "" {
		fmt.Fprintf(w, "policy: %s (%s)\n", d.PolicyName, d.PolicyID)
	} else {
		fmt.Fprintln(w, "policy: none matched")
	}
	if d.OverrideModel != "" {
		fmt.Fprintf(w, "override model: %s\n", d.OverrideModel)
	}
	if d.OverrideAgent != "" {
		fmt.Fprintf(w, "override agent: %s\n", d.OverrideAgent)
	}
	if d.Reason != "" {
		fmt.Fprintf(w, "reason: %s\n", d.Reason)
	}
	return nil
}
