package browserflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractTaskParameters(t *testing.T) {
	t.Run("website and search term", func(t *testing.T) {
		params := ExtractTaskParameters("go to bing.com and search for golang tutorials on bing")
		require.Len(t, params, 2)

		website, ok := params.Get(ParamWebsite)
		require.True(t, ok)
		require.Equal(t, "bing.com", website)

		term, ok := params.Get(ParamSearchTerm)
		require.True(t, ok)
		require.Equal(t, "golang tutorials", term)
	})

	t.Run("matching is case-insensitive but values keep original case", func(t *testing.T) {
		params := ExtractTaskParameters("open GitHub.com and look around")
		website, ok := params.Get(ParamWebsite)
		require.True(t, ok)
		require.Equal(t, "GitHub.com", website)
	})

	t.Run("first candidate in the fixed list wins", func(t *testing.T) {
		params := ExtractTaskParameters("compare bing.com with google.com")
		website, ok := params.Get(ParamWebsite)
		require.True(t, ok)
		// google.com precedes bing.com in the candidate list even though
		// bing.com appears first in the text.
		require.Equal(t, "google.com", website)
	})

	t.Run("on google suffix stripped", func(t *testing.T) {
		params := ExtractTaskParameters("search for cute cats on google")
		term, ok := params.Get(ParamSearchTerm)
		require.True(t, ok)
		require.Equal(t, "cute cats", term)
	})

	t.Run("suffix strip requires an exact suffix", func(t *testing.T) {
		// " on google" is not an exact suffix of "cats on google.com", so
		// the term keeps its tail.
		params := ExtractTaskParameters("search for cats on google.com")
		require.Len(t, params, 2)

		website, ok := params.Get(ParamWebsite)
		require.True(t, ok)
		require.Equal(t, "google.com", website)

		term, ok := params.Get(ParamSearchTerm)
		require.True(t, ok)
		require.Equal(t, "cats on google.com", term)
	})

	t.Run("search term without website", func(t *testing.T) {
		params := ExtractTaskParameters("search for weather in berlin")
		require.Len(t, params, 1)
		require.Equal(t, ParamSearchTerm, params[0].Name)
		require.Equal(t, "weather in berlin", params[0].DefaultValue)
	})

	t.Run("multibyte runes do not shift matched spans", func(t *testing.T) {
		// These runes change byte length under full Unicode lowercasing
		// ("Ⱥ" grows, "İ" shrinks); span offsets must stay anchored to the
		// original text.
		params := ExtractTaskParameters("Ⱥgoogle.com")
		website, ok := params.Get(ParamWebsite)
		require.True(t, ok)
		require.Equal(t, "google.com", website)

		params = ExtractTaskParameters("İİİİİ go to google.com and search for cats")
		website, ok = params.Get(ParamWebsite)
		require.True(t, ok)
		require.Equal(t, "google.com", website)
		term, ok := params.Get(ParamSearchTerm)
		require.True(t, ok)
		require.Equal(t, "cats", term)
	})

	t.Run("no parameters in plain text", func(t *testing.T) {
		params := ExtractTaskParameters("click the first link on the page")
		require.Empty(t, params)
	})

	t.Run("search phrase with nothing after it", func(t *testing.T) {
		params := ExtractTaskParameters("search for")
		require.Empty(t, params)
	})
}

func TestExtractHistoryParameters(t *testing.T) {
	flowWithActions := func(actions ...ActionInvocation) *Flow {
		return &Flow{
			History: []*Step{
				{ModelOutput: &ModelOutput{Action: actions}},
			},
		}
	}

	t.Run("last go_to_url wins", func(t *testing.T) {
		flow := flowWithActions(
			ActionInvocation{ActionGoToURL: {"url": "https://www.google.com/search"}},
			ActionInvocation{ActionGoToURL: {"url": "https://example.com/page"}},
		)
		params := ExtractHistoryParameters(flow)
		website, ok := params.Get(ParamWebsite)
		require.True(t, ok)
		require.Equal(t, "example.com", website)
	})

	t.Run("www prefix stripped", func(t *testing.T) {
		flow := flowWithActions(
			ActionInvocation{ActionGoToURL: {"url": "https://www.youtube.com/watch"}},
		)
		params := ExtractHistoryParameters(flow)
		website, ok := params.Get(ParamWebsite)
		require.True(t, ok)
		require.Equal(t, "youtube.com", website)
	})

	t.Run("last non-blank input_text wins", func(t *testing.T) {
		flow := flowWithActions(
			ActionInvocation{ActionInputText: {"index": 1, "text": "first"}},
			ActionInvocation{ActionInputText: {"index": 2, "text": "   "}},
			ActionInvocation{ActionInputText: {"index": 3, "text": "second"}},
		)
		params := ExtractHistoryParameters(flow)
		term, ok := params.Get(ParamSearchTerm)
		require.True(t, ok)
		require.Equal(t, "second", term)
	})

	t.Run("no matching actions yields empty set", func(t *testing.T) {
		flow := flowWithActions(
			ActionInvocation{ActionClickElementByIndex: {"index": 1}},
		)
		require.Empty(t, ExtractHistoryParameters(flow))
	})
}

func TestExtractParametersPriority(t *testing.T) {
	t.Run("task text suppresses history scan", func(t *testing.T) {
		flow := &Flow{
			OriginalUserTask: "search for cats on google",
			History: []*Step{
				{ModelOutput: &ModelOutput{Action: []ActionInvocation{
					{ActionGoToURL: {"url": "https://bing.com"}},
					{ActionInputText: {"index": 1, "text": "dogs"}},
				}}},
			},
		}
		params := ExtractParameters(flow)
		term, ok := params.Get(ParamSearchTerm)
		require.True(t, ok)
		require.Equal(t, "cats", term)

		// The history's bing.com never surfaces.
		_, ok = params.Get(ParamWebsite)
		require.False(t, ok)
	})

	t.Run("falls back to history when task yields nothing", func(t *testing.T) {
		flow := &Flow{
			OriginalUserTask: "do something unrecognizable",
			History: []*Step{
				{ModelOutput: &ModelOutput{Action: []ActionInvocation{
					{ActionGoToURL: {"url": "https://github.com/explore"}},
				}}},
			},
		}
		params := ExtractParameters(flow)
		website, ok := params.Get(ParamWebsite)
		require.True(t, ok)
		require.Equal(t, "github.com", website)
	})

	t.Run("falls back to history when no task recorded", func(t *testing.T) {
		flow := &Flow{
			History: []*Step{
				{ModelOutput: &ModelOutput{Action: []ActionInvocation{
					{ActionInputText: {"index": 1, "text": "query"}},
				}}},
			},
		}
		params := ExtractParameters(flow)
		term, ok := params.Get(ParamSearchTerm)
		require.True(t, ok)
		require.Equal(t, "query", term)
	})
}
