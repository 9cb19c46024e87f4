package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/hncheck/packages/assertions"
	"github.com/abdul-hamid-achik/hncheck/packages/item"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

var (
	validateAsFlag     string
	validateIDFlag     int64
	validateParentFlag int64
	validateKindsFlag  string
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a saved API payload offline",
	Long: `Validate a saved top-stories or item payload without touching the network.

The payload kind is detected from the JSON (array, null or object) unless
--as is given. Objects are checked against the schema for their type.

Examples:
  hncheck validate topstories.json
  hncheck validate item.json --as item --id 8863 --kinds story,job
  hncheck validate comment.json --as comment --parent 8863
  curl -s https://hacker-news.firebaseio.com/v0/item/1.json | hncheck validate -`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return usageError("validate requires exactly one file (use - for stdin)")
		}
		return nil
	},
	RunE: validateCommand,
}

func init() {
	validateCmd.Flags().StringVar(&validateAsFlag, "as", "auto", "Payload kind: auto, topstories, item, comment, null, schema")
	validateCmd.Flags().Int64Var(&validateIDFlag, "id", 0, "Expected item id (default: the payload's own id)")
	validateCmd.Flags().Int64Var(&validateParentFlag, "parent", 0, "Expected parent id for --as comment (default: the payload's parent)")
	validateCmd.Flags().StringVar(&validateKindsFlag, "kinds", "", "Allowed item types for --as item (comma-separated, default: all)")
}

func validateCommand(cmd *cobra.Command, args []string) error {
	var (
		raw []byte
		err error
	)
	if args[0] == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return withCode(ExitUsageError, fmt.Errorf("cannot read %s: %w", args[0], err))
	}

	opts := validateOptions{
		as:       validateAsFlag,
		id:       validateIDFlag,
		parentID: validateParentFlag,
	}
	for _, name := range splitList(validateKindsFlag) {
		kind, ok := item.ParseKind(name)
		if !ok {
			return usageError("unknown item type %q", name)
		}
		opts.kinds = append(opts.kinds, kind)
	}

	as, v, err := validatePayload(raw, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if v.OK {
		fmt.Fprintf(out, "Valid %s: %s\n", as, args[0])
		return nil
	}
	fmt.Fprintf(out, "Invalid %s: %s\n", as, args[0])
	for _, viol := range v.Violations {
		fmt.Fprintf(out, "  → %s\n", viol)
	}
	return &ExitError{Code: ExitContractFailure}
}

type validateOptions struct {
	as       string
	id       int64
	parentID int64
	kinds    []item.Kind
}

// validatePayload runs the validator selected by opts.as and returns the
// kind it validated as.
func validatePayload(raw []byte, opts validateOptions) (string, assertions.Verdict, error) {
	as := strings.ToLower(opts.as)
	if as == "" || as == "auto" {
		as = detectPayload(raw)
	}

	switch as {
	case "topstories":
		v, err := assertions.ValidateTopStoriesJSON(raw)
		return as, v, err
	case "null":
		v, err := assertions.ValidateNullItemJSON(raw)
		return as, v, err
	case "item", "comment", "schema":
	default:
		return as, assertions.Verdict{}, usageError("unknown payload kind %q", opts.as)
	}

	it, err := item.Decode(raw)
	if err != nil {
		return as, assertions.Failf(assertions.DecodeError, "", "%v", err), nil
	}
	if it == nil {
		return as, assertions.Failf(assertions.ShapeError, "", "payload is null"), nil
	}

	id := opts.id
	if id == 0 {
		id = it.ID
	}

	switch as {
	case "item":
		kinds := opts.kinds
		if len(kinds) == 0 {
			kinds = item.AllKinds
		}
		return as, assertions.ValidateItem(it, id, item.NewKindSet(kinds...)), nil
	case "comment":
		parent := opts.parentID
		if parent == 0 {
			parent = it.ParentID()
		}
		return as, assertions.ValidateComment(it, id, parent), nil
	default:
		v, err := assertions.ValidateSchema(raw, it.Kind)
		if err != nil {
			return as, assertions.Failf(assertions.MismatchError, "type", "%v", err), nil
		}
		return as, v, nil
	}
}

func detectPayload(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if !gjson.ValidBytes(trimmed) {
		return "item"
	}
	switch r := gjson.ParseBytes(trimmed); {
	case r.IsArray():
		return "topstories"
	case r.Type == gjson.Null:
		return "null"
	default:
		return "schema"
	}
}
