package main

import (
	"context"

	"github.com/sujalbistaa/whisperwall/internal/models"
	"github.com/sujalbistaa/whisperwall/internal/store"
)

// seedKey is a valid access key reserved for seeded content so the
// matcher can exclude it like any other author key.
const seedKey = "WSPR-SEED-SEED-0000"

// seedWhispers inserts a handful of sample whispers through the normal
// store path, so seed rows get the same room coercion as API traffic.
// Note the "career" row: it is not in the validated room set and lands
// in general.
func seedWhispers(st store.Store) error {
	rows := []models.Whisper{
		{Mood: "hopeful", Text: "I finally told my sister the truth and the sky did not fall.", Room: models.RoomFamily},
		{Mood: "tired", Text: "Third week of overtime. I keep a countdown on a sticky note.", Room: models.RoomWork},
		{Mood: "restless", Text: "It is 3am and the city sounds like it is breathing.", Room: models.RoomMidnight},
		{Mood: "warm", Text: "Someone left flowers on the bus seat today. I kept one.", Room: models.RoomGeneral},
		{Mood: "anxious", Text: "First appointment tomorrow. Saying it out loud here first.", Room: models.RoomHealth},
		{Mood: "giddy", Text: "They laughed at my terrible pun and I have not recovered.", Room: models.RoomLove},
		{Mood: "uncertain", Text: "Turned down the promotion. Still not sure it was brave or scared.", Room: "career"},
	}
	ctx := context.Background()
	for i := range rows {
		rows[i].AuthorKey = seedKey
		if err := st.CreateWhisper(ctx, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}
