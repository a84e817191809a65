package browserflow

import "strings"

// Recognized parameter names. The set is closed: extraction and substitution
// handle exactly these two names.
const (
	ParamWebsite    = "website"
	ParamSearchTerm = "search_term"
)

// Parameter is a named, substitutable value detected within a flow's
// originating task. DefaultValue is the literal substring observed in the
// source task or history that the name stands for.
type Parameter struct {
	Name         string `json:"name"`
	DefaultValue string `json:"default_value"`
}

// ParameterSet is an ordered collection of extracted parameters.
type ParameterSet []Parameter

// Get returns the default value for the named parameter.
func (s ParameterSet) Get(name string) (string, bool) {
	for _, p := range s {
		if p.Name == name {
			return p.DefaultValue, true
		}
	}
	return "", false
}

// Names returns the parameter names in extraction order.
func (s ParameterSet) Names() []string {
	names := make([]string, 0, len(s))
	for _, p := range s {
		names = append(names, p.Name)
	}
	return names
}

// ParameterValues maps parameter names to caller-chosen replacement values.
type ParameterValues map[string]string

// websiteCandidates is the fixed, ordered list of known website substrings
// scanned by task-text extraction. The first candidate found anywhere in the
// task wins; at most one website parameter is ever produced.
var websiteCandidates = []string{
	"google.com",
	"bing.com",
	"github.com",
	"example.com",
	"youtube.com",
	"amazon.com",
	"wikipedia.org",
}

// searchPhrase introduces a search term in task text.
const searchPhrase = "search for"

// searchTermSuffixes are boilerplate suffixes stripped from a captured
// search term. The strip is a case-sensitive exact-suffix removal: a term
// like "cats on google.com" keeps its tail because " on google" is not an
// exact suffix of it.
var searchTermSuffixes = []string{" on google", " on bing"}

// ExtractParameters identifies the substitutable parameters of a flow. Task
// text extraction is preferred whenever the flow records an original task;
// the recorded action history is scanned only when task text extraction
// yields nothing.
func ExtractParameters(flow *Flow) ParameterSet {
	if flow.OriginalUserTask != "" {
		if params := ExtractTaskParameters(flow.OriginalUserTask); len(params) > 0 {
			return params
		}
	}
	return ExtractHistoryParameters(flow)
}

// ExtractTaskParameters scans free task text for known website substrings
// and a "search for" phrase. Matching is ASCII-case-insensitive, but default
// values are taken from the original-case text at the matched span. Zero,
// one, or both parameters may be produced.
func ExtractTaskParameters(task string) ParameterSet {
	lower := asciiLower(task)
	var params ParameterSet

	for _, candidate := range websiteCandidates {
		if idx := strings.Index(lower, candidate); idx >= 0 {
			params = append(params, Parameter{
				Name:         ParamWebsite,
				DefaultValue: task[idx : idx+len(candidate)],
			})
			break
		}
	}

	if idx := strings.Index(lower, searchPhrase); idx >= 0 {
		term := task[idx+len(searchPhrase):]
		for _, suffix := range searchTermSuffixes {
			term = strings.TrimSuffix(term, suffix)
		}
		if term = strings.TrimSpace(term); term != "" {
			params = append(params, Parameter{
				Name:         ParamSearchTerm,
				DefaultValue: term,
			})
		}
	}

	return params
}

// ExtractHistoryParameters scans the recorded action history: the host of
// the last go_to_url action becomes the website parameter, and the text of
// the last non-blank input_text action becomes the search term.
func ExtractHistoryParameters(flow *Flow) ParameterSet {
	var website, searchTerm string
	for _, action := range flow.Actions() {
		switch action.Name() {
		case ActionGoToURL:
			if host := hostFromURL(action.StringParameter("url")); host != "" {
				website = host
			}
		case ActionInputText:
			if text := strings.TrimSpace(action.StringParameter("text")); text != "" {
				searchTerm = text
			}
		}
	}

	var params ParameterSet
	if website != "" {
		params = append(params, Parameter{Name: ParamWebsite, DefaultValue: website})
	}
	if searchTerm != "" {
		params = append(params, Parameter{Name: ParamSearchTerm, DefaultValue: searchTerm})
	}
	return params
}

// asciiLower folds ASCII uppercase letters only. Unlike strings.ToLower it
// never changes the byte length of the input, so byte offsets found in the
// folded text remain valid in the original. The candidate substrings and the
// search phrase are all ASCII, which is all this fold needs to match.
func asciiLower(s string) string {
	var folded []byte
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			if folded == nil {
				folded = []byte(s)
			}
			folded[i] = c + 'a' - 'A'
		}
	}
	if folded == nil {
		return s
	}
	return string(folded)
}

// hostFromURL extracts the host portion of a URL: everything after the
// scheme separator up to the first path separator, with a leading "www."
// prefix removed.
func hostFromURL(url string) string {
	if url == "" {
		return ""
	}
	rest := url
	if _, after, found := strings.Cut(url, "://"); found {
		rest = after
	}
	host, _, _ := strings.Cut(rest, "/")
	return strings.TrimPrefix(host, "www.")
}
