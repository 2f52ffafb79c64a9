package cloud

import "testing"

func TestCollectionsKeyNamespacing(t *testing.T) {
	a := &CollectionsAdapter{keyPrefix: "nabil:cloud"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"collection", a.collectionKey("nabil@example.com", "products"), "nabil:cloud:nabil@example.com:products"},
		{"earnings", a.earningsKey("nabil@example.com"), "nabil:cloud:nabil@example.com:earnings"},
		{"last sync", a.lastSyncKey("nabil@example.com"), "nabil:cloud:nabil@example.com:last_sync"},
		{"channel", a.channel("nabil@example.com", "sales"), "nabil:cloud:nabil@example.com:events:sales"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestCollectionsKeysDistinctAcrossIdentities(t *testing.T) {
	a := &CollectionsAdapter{keyPrefix: "nabil:cloud"}
	if a.collectionKey("a@example.com", "products") == a.collectionKey("b@example.com", "products") {
		t.Error("different identities share a collection key")
	}
}
