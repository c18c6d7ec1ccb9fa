package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/dental-api/internal/store"
)

func collectionNames() []string {
	return slices.Clone(store.Collections)
}

func checkCollection(name string) error {
	if !slices.Contains(store.Collections, name) {
		return fmt.Errorf("unknown collection %q (want one of %v)", name, store.Collections)
	}
	return nil
}

func runSeed(cmd *cobra.Command, e *env) error {
	if err := store.SeedDemoData(cmd.Context(), e.adapter, time.Now()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "demo data seeded")
	return nil
}

func runExport(cmd *cobra.Command, e *env, name string) error {
	if err := checkCollection(name); err != nil {
		return err
	}

	raw, err := e.adapter.Raw(cmd.Context(), name)
	if err != nil {
		return err
	}
	if raw == nil {
		raw = []byte("[]")
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("%s holds invalid JSON: %w", store.Key(name), err)
	}
	out.WriteByte('\n')
	_, err = out.WriteTo(cmd.OutOrStdout())
	return err
}

func runReset(cmd *cobra.Command, e *env, names []string) error {
	if len(names) == 0 {
		names = collectionNames()
	}
	for _, name := range names {
		if err := checkCollection(name); err != nil {
			return err
		}
	}

	if err := e.adapter.Reset(cmd.Context(), names...); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "reset %v\n", names)
	return nil
}
