package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailpilot/mailpilot/internal/auth"
	"github.com/mailpilot/mailpilot/internal/config"
	"github.com/mailpilot/mailpilot/internal/model"
	mailpilot "github.com/mailpilot/mailpilot/sdk/go"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token with the server signing secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")
		email, _ := cmd.Flags().GetString("email")

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		tokens, err := auth.NewTokenService(cfg.Security.Tokens)
		if err != nil {
			return err
		}
		issued, err := tokens.Issue(owner, email)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), issued.AccessToken)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires in %ds\n", issued.ExpiresIn)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the recipient list with a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		res, err := newClient().ImportRecipients(cmd.Context(), args[0], f)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Imported %d recipients from sheet %q", res.Imported, res.Sheet)
		if res.Dropped > 0 {
			fmt.Fprintf(out, " (%d empty rows dropped)", res.Dropped)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Columns: %s\n", strings.Join(res.Headers, ", "))
		return nil
	},
}

var recipientsCmd = &cobra.Command{
	Use:   "recipients",
	Short: "List imported recipients",
	RunE: func(cmd *cobra.Command, args []string) error {
		recipients, err := newClient().ListRecipients(cmd.Context())
		if err != nil {
			return err
		}
		printRecipients(cmd.OutOrStdout(), recipients)
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render the subject and body for one recipient",
	RunE: func(cmd *cobra.Command, args []string) error {
		recipient, _ := cmd.Flags().GetString("recipient")
		subject, _ := cmd.Flags().GetString("subject")
		body, err := readBody(cmd)
		if err != nil {
			return err
		}

		p, err := newClient().Preview(cmd.Context(), recipient, subject, body)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Subject: %s\n\n%s\n", p.Subject, p.Body)
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send the campaign to every new recipient",
	RunE:  runSend,
}

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show progress of the current or last batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newClient().Progress(cmd.Context())
		if err != nil {
			return err
		}
		printProgress(cmd.OutOrStdout(), p)
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Stop the running batch after the current recipient",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().CancelSend(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cancellation requested")
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent deliveries",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := newClient().History(cmd.Context(), limit)
		if err != nil {
			return err
		}
		printHistory(cmd.OutOrStdout(), entries)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show delivery totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := newClient().HistoryStats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Total: %d  Delivered: %d  Failed: %d\n", stats.Total, stats.Delivered, stats.Failed)
		return nil
	},
}

var smtpTestCmd = &cobra.Command{
	Use:   "smtp-test",
	Short: "Send a test message with the saved SMTP settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newClient().TestSMTPSettings(cmd.Context(), v.GetString("smtp_password"))
		if err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("test failed: %s", res.Message)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("owner", "", "owner id the token is issued to")
	tokenCmd.Flags().String("email", "", "optional email claim")
	tokenCmd.MarkFlagRequired("owner")

	for _, c := range []*cobra.Command{previewCmd, sendCmd} {
		c.Flags().String("subject", "", "subject template")
		c.Flags().String("body", "", "HTML body template")
		c.Flags().String("body-file", "", "read the HTML body template from a file")
	}
	previewCmd.Flags().String("recipient", "", "recipient id to render for")

	sendCmd.Flags().StringSlice("ids", nil, "restrict the batch to these recipient ids")
	sendCmd.Flags().Bool("force", false, "also send to recipients already contacted")
	sendCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	sendCmd.MarkFlagRequired("subject")

	historyCmd.Flags().Int("limit", 50, "number of entries to show")
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client := newClient()

	subject, _ := cmd.Flags().GetString("subject")
	ids, _ := cmd.Flags().GetStringSlice("ids")
	force, _ := cmd.Flags().GetBool("force")
	yes, _ := cmd.Flags().GetBool("yes")
	body, err := readBody(cmd)
	if err != nil {
		return err
	}

	counts, err := client.ConfirmSend(ctx, ids...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	force, proceed, err := confirm(*counts, force, yes, cmd.InOrStdin(), out)
	if err != nil {
		return err
	}
	if !proceed {
		fmt.Fprintln(out, "Aborted")
		return nil
	}

	res, err := client.Send(ctx, mailpilot.SendRequest{
		RecipientIDs: ids,
		Subject:      subject,
		Body:         body,
		ForceResend:  force,
		Password:     v.GetString("smtp_password"),
	})
	if err != nil {
		if ctx.Err() != nil {
			// the server keeps going without us
			cancelCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if cerr := client.CancelSend(cancelCtx); cerr == nil {
				fmt.Fprintln(out, "Interrupted, cancellation requested")
			}
		}
		return err
	}

	printSummary(out, res)
	return nil
}

// confirm shows the classification and asks whether to go ahead. It returns
// the effective force flag.
func confirm(counts mailpilot.Counts, force, yes bool, in io.Reader, out io.Writer) (bool, bool, error) {
	fmt.Fprintf(out, "%d recipients: %d new, %d already sent, %d invalid\n",
		counts.Total, counts.New, counts.AlreadySent, counts.Invalid)

	if yes {
		return force, counts.New > 0 || (force && counts.AlreadySent > 0), nil
	}

	reader := bufio.NewReader(in)
	if !force && counts.AlreadySent > 0 {
		ok, err := ask(reader, out, fmt.Sprintf("Resend to the %d already contacted?", counts.AlreadySent))
		if err != nil {
			return false, false, err
		}
		force = ok
	}

	target := counts.New
	if force {
		target += counts.AlreadySent
	}
	if target == 0 {
		fmt.Fprintln(out, "Nothing to send")
		return force, false, nil
	}

	ok, err := ask(reader, out, fmt.Sprintf("Send to %d recipients?", target))
	return force, ok, err
}

func ask(r *bufio.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "o", "oui":
		return true, nil
	}
	return false, nil
}

func readBody(cmd *cobra.Command) (string, error) {
	body, _ := cmd.Flags().GetString("body")
	path, _ := cmd.Flags().GetString("body-file")
	if path == "" {
		return body, nil
	}
	if body != "" {
		return "", errors.New("--body and --body-file are mutually exclusive")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read body file: %w", err)
	}
	return string(data), nil
}

func printRecipients(out io.Writer, recipients []mailpilot.Recipient) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tBENEFICIARY\tDATE")
	for i := range recipients {
		r := &recipients[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Email(), r.Fields.Get(model.FieldBeneficiaryName), r.Fields.Get(model.FieldRDVDate))
	}
	tw.Flush()
	fmt.Fprintf(out, "%d recipients\n", len(recipients))
}

func printHistory(out io.Writer, entries []mailpilot.DeliveryLog) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SENT AT\tSTATUS\tEMAIL\tBENEFICIARY\tDATE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.SentAt.Local().Format("2006-01-02 15:04"), e.Status, e.Beneficiary.Email, e.Beneficiary.Name, e.Date)
	}
	tw.Flush()
}

func printProgress(out io.Writer, p *mailpilot.SendProgress) {
	state := "running"
	if p.Done {
		state = "done"
	}
	fmt.Fprintf(out, "Batch %s %s: %d/%d (%.0f%%) sent %d, skipped %d, failed %d\n",
		p.BatchID, state, p.Processed, p.Total, p.Fraction*100, p.Sent, p.Skipped, p.Failed)
}

func printSummary(out io.Writer, res *mailpilot.SendResult) {
	if res.Cancelled {
		fmt.Fprintln(out, "Batch cancelled before completion")
	}
	fmt.Fprintf(out, "Sent %d, skipped %d (%d invalid, %d already sent), failed %d, total %d\n",
		res.Sent, res.Skipped, res.Invalid, res.AlreadySent, res.Failed, res.Total)
}
