package group

import "testing"

func TestFromName(t *testing.T) {
	for _, name := range SupportedGroups() {
		grp, err := FromName(name)
		if err != nil {
			t.Fatalf("FromName(%q) failed: %v", name, err)
		}
		if grp.Name() != name {
			t.Errorf("FromName(%q) returned group named %q", name, grp.Name())
		}
	}
}

func TestFromNameIsCaseInsensitive(t *testing.T) {
	grp, err := FromName("Ristretto255")
	if err != nil {
		t.Fatalf("FromName failed: %v", err)
	}
	if grp.Name() != "ristretto255" {
		t.Errorf("unexpected group %q", grp.Name())
	}
}

func TestFromNameAliases(t *testing.T) {
	grp, err := FromName("modp")
	if err != nil {
		t.Fatalf("FromName failed: %v", err)
	}
	if grp.Name() != "modp2048" {
		t.Errorf("unexpected group %q", grp.Name())
	}
}

func TestFromNameUnknown(t *testing.T) {
	if _, err := FromName("p256"); err == nil {
		t.Fatal("expected error for unsupported group")
	}
}
