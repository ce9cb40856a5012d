package identity

import (
	"testing"
	"time"
)

func BenchmarkHashIdentity(b *testing.B) {
	h := NewHasher(testPepper)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		h.HashIdentity("203.0.113.42")
		h.HashNetwork("203.0.113.42")
	}
}

func BenchmarkResolveAlias(b *testing.B) {
	r := newTestResolver(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := r.Resolve("", "Reader-{hash}", "203.0.113.42", "article-1"); err != nil {
			b.Fatalf("Resolve: %v", err)
		}
	}
}

// BenchmarkSealerParallel seals client snapshots from concurrent requests
func BenchmarkSealerParallel(b *testing.B) {
	s, err := NewSealer(testPepper)
	if err != nil {
		b.Fatalf("NewSealer: %v", err)
	}
	snapshot := map[string]string{"address": "203.0.113.42", "user_agent": "bench/1.0"}

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := s.Seal(snapshot); err != nil {
				b.Errorf("Seal: %v", err)
				return
			}
		}
	})
}
