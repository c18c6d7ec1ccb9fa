package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/dental-api/internal/credential"
	"github.com/jwalitptl/dental-api/internal/session"
	"github.com/jwalitptl/dental-api/pkg/kvstore"
	"github.com/jwalitptl/dental-api/pkg/security"
)

// runSessionShow prints the raw persisted session without validating or
// clearing it.
func runSessionShow(cmd *cobra.Command, e *env) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	user, err := e.kv.Get(ctx, session.KeyUser)
	if errors.Is(err, kvstore.ErrNotFound) {
		fmt.Fprintln(out, "no persisted session")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s\n", session.KeyUser, user)

	raw, err := e.kv.Get(ctx, session.KeyExpiry)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		fmt.Fprintf(out, "%s: missing\n", session.KeyExpiry)
		return nil
	case err != nil:
		return err
	}

	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		fmt.Fprintf(out, "%s: corrupt (%q)\n", session.KeyExpiry, raw)
		return nil
	}
	expiry := time.UnixMilli(ms)
	state := "active"
	if !expiry.After(time.Now()) {
		state = "expired"
	}
	fmt.Fprintf(out, "%s: %s (%s)\n", session.KeyExpiry, expiry.Format(time.RFC3339), state)
	return nil
}

func runSessionClear(cmd *cobra.Command, e *env) error {
	ctx := cmd.Context()
	if err := errors.Join(
		e.kv.Delete(ctx, session.KeyUser),
		e.kv.Delete(ctx, session.KeyExpiry),
	); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "session cleared")
	return nil
}

func runUsers(cmd *cobra.Command, _ *env) error {
	// Only the user list is needed, so hash at the cheapest cost.
	creds, err := credential.NewDemoStore(security.NewBcryptHasher(bcrypt.MinCost))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tROLE\tNAME\tPATIENT")
	for _, u := range creds.Users() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Role, u.Name, u.PatientID)
	}
	return w.Flush()
}
