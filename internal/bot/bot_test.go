package bot

import (
	"testing"

	tgmodels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/claimspro/internal/bot/mocks"
)

func TestExtractUserID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		update *tgmodels.Update
		want   int64
	}{
		{
			name:   "command message",
			update: mocks.NewUpdateBuilder().WithMessage(100, 12345, "/claims").Build(),
			want:   12345,
		},
		{
			name: "status button callback",
			update: mocks.NewUpdateBuilder().
				WithCallbackQuery("cb-1", 100, 67890, 42, callbackStatusPrefix+"claim-1:Approved").
				Build(),
			want: 67890,
		},
		{
			name: "delete contract confirmation callback",
			update: mocks.NewUpdateBuilder().
				WithCallbackQuery("cb-2", 100, 67891, 43, callbackDeleteContractPrefix+"contract-1").
				Build(),
			want: 67891,
		},
		{
			name: "progress report uploaded as a document",
			update: mocks.NewUpdateBuilder().
				WithMessage(100, 22222, "").
				WithDocument("doc-1", "week12.pdf", "application/pdf").
				WithCaption("/attach 1").
				Build(),
			want: 22222,
		},
		{
			name: "site photo",
			update: mocks.NewUpdateBuilder().
				WithMessage(100, 33333, "").
				WithPhoto("photo-1").
				Build(),
			want: 33333,
		},
		{
			name:   "edited message",
			update: mocks.NewUpdateBuilder().WithEditedMessage(100, 11111, "/claim 1").Build(),
			want:   11111,
		},
		{
			name:   "empty update",
			update: &tgmodels.Update{},
			want:   0,
		},
		{
			name:   "message without sender",
			update: &tgmodels.Update{Message: &tgmodels.Message{From: nil}},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, extractUserID(tt.update))
		})
	}
}

func TestExtractUsername(t *testing.T) {
	t.Parallel()

	callback := mocks.NewUpdateBuilder().
		WithCallbackQuery("cb-1", 100, 1, 42, callbackCancel).
		WithFrom(1, "site_manager", "Sam", "Lee").
		Build()
	require.Equal(t, "site_manager", extractUsername(callback))

	document := mocks.NewUpdateBuilder().
		WithMessage(100, 2, "").
		WithDocument("doc-1", "import.json", "application/json").
		Build()
	require.Equal(t, "testuser", extractUsername(document))

	require.Empty(t, extractUsername(&tgmodels.Update{}))
}

func TestMessageCommandText(t *testing.T) {
	t.Parallel()

	document := mocks.NewUpdateBuilder().
		WithMessage(100, 1, "ignored").
		WithDocument("doc-1", "week12.pdf", "application/pdf").
		WithCaption("/attach 2").
		Build()
	require.Equal(t, "/attach 2", messageCommandText(document.Message))

	photo := mocks.NewUpdateBuilder().
		WithMessage(100, 1, "").
		WithPhoto("photo-1").
		Build()
	require.Empty(t, messageCommandText(photo.Message), "uncaptioned photo has no command")

	text := mocks.NewUpdateBuilder().WithMessage(100, 1, "/dashboard").Build()
	require.Equal(t, "/dashboard", messageCommandText(text.Message))
}

func TestLogUserAction(t *testing.T) {
	t.Parallel()

	updates := []*tgmodels.Update{
		mocks.NewUpdateBuilder().WithMessage(100, 1, "/newclaim template").Build(),
		mocks.NewUpdateBuilder().
			WithMessage(100, 1, "").
			WithDocument("doc-1", "week12.pdf", "application/pdf").
			WithCaption("/suggest 1").
			Build(),
		mocks.NewUpdateBuilder().WithMessage(100, 1, "").WithPhoto("photo-1").Build(),
		mocks.NewUpdateBuilder().
			WithCallbackQuery("cb-1", 100, 1, 42, callbackDeleteClaimPrefix+"claim-1").
			Build(),
		{},
	}

	for _, update := range updates {
		require.NotPanics(t, func() { logUserAction(1, update) })
	}
}
