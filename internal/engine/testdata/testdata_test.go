package testdata

import "testing"

func TestLoadCorpus(t *testing.T) {
	cases, err := LoadCorpus()
	if err != nil {
		t.Fatalf("LoadCorpus() error: %v", err)
	}
	if len(cases) == 0 {
		t.Fatal("corpus is empty")
	}

	perLabel := map[string]int{}
	for i, c := range cases {
		if len(c.FunctionalRequirements) == 0 || len(c.NonFunctionalRequirements) == 0 {
			t.Errorf("case[%d] has an empty requirement list", i)
		}
		perLabel[c.ArchitectureLabel]++
	}

	for _, label := range []string{"Event-Driven", "Layered", "MVC", "Microservices"} {
		if perLabel[label] < 2 {
			t.Errorf("label %q has %d cases, want at least 2", label, perLabel[label])
		}
	}
	if len(perLabel) != 4 {
		t.Errorf("got labels %v, want exactly four", perLabel)
	}
}
