package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bft-labs/signtype/pkg/session"
	"github.com/bft-labs/signtype/pkg/vocab"
)

func newVocabCmd() *cobra.Command {
	var (
		path        string
		idleToken   string
		deleteToken string
	)
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Print the effective classifier vocabulary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := vocab.Default()
			if path != "" {
				var err error
				if v, err = vocab.Load(path); err != nil {
					return err
				}
			}
			if err := v.Validate(idleToken, deleteToken); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, label := range v.Labels() {
				note := ""
				switch label {
				case idleToken:
					note = "\tidle"
				case deleteToken:
					note = "\tdelete"
				}
				fmt.Fprintf(out, "%2d\t%s%s\n", i, label, note)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "vocabulary-file", "", "label list, one per line (default: A-Z, del, nothing)")
	cmd.Flags().StringVar(&idleToken, "idle-token", session.DefaultIdleToken, "label meaning no sign")
	cmd.Flags().StringVar(&deleteToken, "delete-token", session.DefaultDeleteToken, "label meaning delete the last letter")
	return cmd
}
