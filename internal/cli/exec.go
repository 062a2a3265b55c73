package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/evanofslack/adsmutate/internal/response"
	"github.com/evanofslack/adsmutate/internal/workflow"
)

func newCloneCmd(a *app) *cobra.Command {
	var in workflow.CloneCampaignInput
	cmd := &cobra.Command{
		Use:   "clone <campaign-id>",
		Short: "Clone a campaign with its budget, ad groups and keywords",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.CampaignID = args[0]
			payload, err := json.Marshal(in)
			if err != nil {
				return err
			}
			return a.dispatch(cmd.Context(), cmd.OutOrStdout(), workflow.WorkflowCloneCampaign, payload)
		},
	}
	cmd.Flags().StringVar(&in.NewName, "name", "", "name of the copy (defaults to \"<source> (copy)\")")
	cmd.Flags().StringVar(&in.CustomerID, "customer", "", "customer id (defaults to api.customerId)")
	return cmd
}

func newExecCmd(a *app) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "exec <workflow>",
		Short: "Run a workflow with a JSON input read from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readInput(cmd.InOrStdin(), input)
			if err != nil {
				return err
			}
			return a.dispatch(cmd.Context(), cmd.OutOrStdout(), args[0], payload)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "f", "-", "input file, - for stdin")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return b, nil
}

// dispatch runs one workflow and prints the response envelope. The error is
// still returned so the process exits non-zero.
func (a *app) dispatch(ctx context.Context, w io.Writer, name string, payload []byte) error {
	if err := a.load(); err != nil {
		return err
	}
	defer a.close()

	res, err := a.service().Dispatch(ctx, name, payload)
	var body string
	if err != nil {
		body = failureBody(err, res)
	} else {
		body = response.Success(res, res.Summary())
	}
	if _, werr := fmt.Fprintln(w, body); werr != nil {
		return werr
	}
	return err
}
