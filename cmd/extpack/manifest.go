// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/seamdriven/extpack/internal/config"
	"github.com/seamdriven/extpack/pkg/manifest"

	"github.com/spf13/cobra"
)

func newManifestCommand(app *App) *cobra.Command {
	var minimal bool

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Print the project descriptor",
		Long: `Print the project descriptor after validation.

With --minimal, print the reduced descriptor exactly as it is written into the
staging directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true

			sess, err := app.newSession(cmd.Context())
			if err != nil {
				return failCommand(app.stderr, err, app.flags.verbose)
			}

			m, err := manifest.Load(sess.root, sess.cfg.Descriptor)
			if err != nil {
				return failCommand(app.stderr, err, app.flags.verbose)
			}

			data, err := encodeManifest(m, minimal, sess.cfg.DefaultRepository)
			if err != nil {
				return failCommand(app.stderr, err, app.flags.verbose)
			}
			_, err = app.stdout.Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&minimal, "minimal", false, "print the reduced descriptor that gets packaged")

	return cmd
}

func encodeManifest(m *manifest.Manifest, minimal bool, defaultRepo *config.RepositoryConfig) ([]byte, error) {
	if !minimal {
		return m.Encode()
	}

	var repo *manifest.Repository
	if defaultRepo != nil {
		repo = &manifest.Repository{Type: defaultRepo.Type, URL: defaultRepo.URL}
	}
	mm, err := m.Minimal(repo)
	if err != nil {
		return nil, err
	}
	return mm.Encode()
}
