package vocab_test

import (
	"testing"

	"github.com/mverran/scrivano/internal/vocab"
)

func TestApply_CanonicalizesExactMatches(t *testing.T) {
	t.Parallel()

	c := vocab.New([]string{"Kubernetes", "Datadog"})
	got := c.Apply("we use datadog and kubernetes daily")
	want := "we use Datadog and Kubernetes daily"
	if got != want {
		t.Errorf("Apply() = %q, want %q", got, want)
	}
}

func TestApply_CorrectsPhoneticMisrecognitions(t *testing.T) {
	t.Parallel()

	c := vocab.New([]string{"Kubernetes", "Grafana"})
	cases := map[string]string{
		"deploy to kubernets now":   "deploy to Kubernetes now",
		"check the grafanna board":  "check the Grafana board",
		"restart kubernetes please": "restart Kubernetes please",
	}
	for in, want := range cases {
		if got := c.Apply(in); got != want {
			t.Errorf("Apply(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestApply_PreservesPunctuation(t *testing.T) {
	t.Parallel()

	c := vocab.New([]string{"Kubernetes"})
	if got := c.Apply("migrate to kubernets, then scale."); got != "migrate to Kubernetes, then scale." {
		t.Errorf("Apply() = %q", got)
	}
}

func TestApply_LeavesUnrelatedTextAlone(t *testing.T) {
	t.Parallel()

	c := vocab.New([]string{"Kubernetes"})
	in := "the quick brown fox jumps over the lazy dog"
	if got := c.Apply(in); got != in {
		t.Errorf("Apply() = %q, want input unchanged", got)
	}
}

func TestApply_NeverRewritesShortTokens(t *testing.T) {
	t.Parallel()

	c := vocab.New([]string{"Ann"})
	if got := c.Apply("an apple a day"); got != "an apple a day" {
		t.Errorf("Apply() = %q, short token was rewritten", got)
	}
}

func TestApply_MultiWordTerm(t *testing.T) {
	t.Parallel()

	c := vocab.New([]string{"Visual Studio Code"})
	if got := c.Apply("open vishual studio code for me"); got != "open Visual Studio Code for me" {
		t.Errorf("Apply() = %q", got)
	}
}

func TestApply_EmptyVocabularyIsIdentity(t *testing.T) {
	t.Parallel()

	c := vocab.New(nil)
	if !c.Empty() {
		t.Error("Empty() = false for empty vocabulary")
	}
	in := "anything at all"
	if got := c.Apply(in); got != in {
		t.Errorf("Apply() = %q", got)
	}
}

func TestNew_SkipsBlankAndDuplicateEntries(t *testing.T) {
	t.Parallel()

	c := vocab.New([]string{"  ", "Redis", "redis", ""})
	if got := c.Apply("use redis here"); got != "use Redis here" {
		t.Errorf("Apply() = %q, first canonical spelling should win", got)
	}
}
