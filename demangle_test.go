package sdb

import "testing"

func TestDemangle(t *testing.T) {
	cases := map[string]string{
		"_Z3fooi":               "foo(int)",
		"_Z3barv":               "bar()",
		"_Z5printPKc":           "print(char const*)",
		"_ZN3Box3getEv":         "Box::get()",
		"_ZN3BoxC1Ev":           "Box::Box()",
		"_ZN3BoxD1Ev":           "Box::~Box()",
		"_ZNSt6vectorIiE4sizeEv": "std::vector<int>::size()",
		"_Z3addii":              "add(int, int)",
	}
	for mangled, want := range cases {
		got, ok := demangleName(mangled)
		if !ok || got != want {
			t.Errorf("demangleName(%q) = %q, %v; want %q", mangled, got, ok, want)
		}
	}
}

func TestDemangleRejectsPlainNames(t *testing.T) {
	for _, name := range []string{"main", "_start", "printf", ""} {
		if _, ok := demangleName(name); ok {
			t.Errorf("demangleName(%q) claimed success", name)
		}
	}
}
