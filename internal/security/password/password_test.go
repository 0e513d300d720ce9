package password

import (
	"strings"
	"testing"
)

// Parámetros bajos para que la suite no tarde; el formato es el mismo.
var testParams = Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32}

func TestHashVerify_RoundTrip(t *testing.T) {
	phc, err := Hash(testParams, "hunter2!")
	if err != nil {
		t.Fatalf("Hash err: %v", err)
	}
	if !strings.HasPrefix(phc, "$argon2id$v=19$") {
		t.Fatalf("unexpected PHC prefix: %q", phc)
	}
	if !Verify("hunter2!", phc) {
		t.Fatal("Verify rejected the correct secret")
	}
	if Verify("hunter3!", phc) {
		t.Fatal("Verify accepted a wrong secret")
	}
}

func TestHash_EmptySecretRejected(t *testing.T) {
	if _, err := Hash(testParams, ""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestHash_SaltsDiffer(t *testing.T) {
	a, err := Hash(testParams, "same")
	if err != nil {
		t.Fatalf("Hash err: %v", err)
	}
	b, err := Hash(testParams, "same")
	if err != nil {
		t.Fatalf("Hash err: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same secret must differ (random salt)")
	}
	if !Verify("same", a) || !Verify("same", b) {
		t.Fatal("both hashes must verify")
	}
}

func TestVerify_FailsClosed(t *testing.T) {
	cases := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$ZGsZGs",              // variante no soportada
		"$argon2id$v=19$m=8192,t=1,p=1$!!!badb64!!!$ZGsZGs",       // salt inválido
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA",                    // campos de menos
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$ZGsZGs",             // versión inesperada
		"$argon2id$v=19$garbanzo$c2FsdA$ZGsZGs",                   // params ilegibles
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$ZGsZGs$extra$extra", // campos de más
	}
	for _, phc := range cases {
		if Verify("whatever", phc) {
			t.Fatalf("Verify accepted malformed hash %q", phc)
		}
	}
}
