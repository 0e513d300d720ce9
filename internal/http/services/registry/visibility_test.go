package registry

import (
	"testing"

	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Django":            "django",
		"my.package":        "my-package",
		"my_package":        "my-package",
		"my--package":       "my-package",
		"My_.-Weird_.-Name": "my-weird-name",
		"  spaced  ":        "spaced",
		"already-fine":      "already-fine",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVisible_UnlabeledIsPublic(t *testing.T) {
	pkg := &core.Package{Name: "open", Labels: []string{}}
	caller := &core.User{Username: "ana"}
	if !Visible(pkg, caller, nil) {
		t.Fatal("unlabeled package must be visible to any authenticated caller")
	}
}

func TestVisible_LabelIntersection(t *testing.T) {
	pkg := &core.Package{Name: "internal-tool", Labels: []string{"platform", "sre"}}
	caller := &core.User{Username: "ana"}

	if Visible(pkg, caller, map[string]struct{}{"billing": {}}) {
		t.Fatal("no intersection: must be invisible")
	}
	if !Visible(pkg, caller, map[string]struct{}{"sre": {}}) {
		t.Fatal("intersecting label: must be visible")
	}
	if Visible(pkg, caller, map[string]struct{}{}) {
		t.Fatal("empty caller set vs labeled package: must be invisible")
	}
}

func TestVisible_SuperuserSeesEverything(t *testing.T) {
	pkg := &core.Package{Name: "secret", Labels: []string{"restricted"}}
	root := &core.User{Username: "root", Superuser: true}
	if !Visible(pkg, root, nil) {
		t.Fatal("superuser must bypass label checks")
	}
}
