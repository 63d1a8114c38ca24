// Package verify is the auditor's tool: it replays a published
// verification transcript against the original deck and reports whether
// the shuffle was fair.
package verify

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/austin1233211/indian-poker-sub000/pkg/shuffle"
)

func New() *cobra.Command {
	var transcriptPath string
	var deckPath string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Replay a verification transcript against the original deck",
		Run: func(cmd *cobra.Command, args []string) {
			if err := run(transcriptPath, deckPath); err != nil {
				log.Fatal().Err(err).Msg("Transcript verification failed")
			}
			log.Info().Str("transcript", transcriptPath).Msg("Transcript verified: shuffle is fair and reproducible")
		},
	}

	cmd.Flags().StringVarP(&transcriptPath, "transcript", "t", "transcript.json", "Path to the transcript JSON")
	cmd.Flags().StringVarP(&deckPath, "deck", "d", "deck.json", "Path to the original deck (JSON array of strings)")

	return cmd
}

func run(transcriptPath, deckPath string) error {
	trData, err := os.ReadFile(transcriptPath)
	if err != nil {
		return errors.Wrap(err, "failed to read transcript")
	}
	var tr shuffle.Transcript
	if err := json.Unmarshal(trData, &tr); err != nil {
		return errors.Wrap(err, "transcript is not valid JSON")
	}

	deckData, err := os.ReadFile(deckPath)
	if err != nil {
		return errors.Wrap(err, "failed to read deck")
	}
	var deck []string
	if err := json.Unmarshal(deckData, &deck); err != nil {
		return errors.Wrap(err, "deck is not a JSON array of strings")
	}

	return shuffle.VerifyTranscript(&tr, deck)
}
