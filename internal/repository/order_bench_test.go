package repository

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"gorm.io/gorm"
)

func setupOrderBenchRepo(b *testing.B) *SingleDBOrderRepository {
	repo := NewSingleDBOrderRepository(openSQLite(b))
	if err := repo.InitSchema(); err != nil {
		b.Fatalf("migrate: %v", err)
	}
	return repo
}

func BenchmarkOrderCreate(b *testing.B) {
	repo := setupOrderBenchRepo(b)
	ctx := context.Background()
	now := time.Now()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := fmt.Sprintf("BCC-BENCH-%07d", i)
		if err := repo.Create(ctx, newOrder(id, fmt.Sprintf("p%03d@example.com", i%500), now)); err != nil {
			b.Fatalf("create: %v", err)
		}
	}
}

func BenchmarkOrderLookup(b *testing.B) {
	ctx := context.Background()
	const N = 2000

	seed := func(b *testing.B, repo OrderRepository) {
		now := time.Now()
		for i := 0; i < N; i++ {
			id := fmt.Sprintf("BCC-BENCH-%07d", i)
			if err := repo.Create(ctx, newOrder(id, fmt.Sprintf("p%03d@example.com", i%100), now.Add(time.Duration(i)*time.Second))); err != nil {
				b.Fatalf("seed: %v", err)
			}
		}
	}

	b.Run("SingleGet", func(b *testing.B) {
		repo := setupOrderBenchRepo(b)
		seed(b, repo)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = repo.GetByOrderID(ctx, fmt.Sprintf("BCC-BENCH-%07d", rand.Intn(N)))
		}
	})

	b.Run("ShardedGet", func(b *testing.B) {
		repo, err := NewShardedOrderRepository([]*gorm.DB{openSQLite(b), openSQLite(b), openSQLite(b), openSQLite(b)})
		if err != nil {
			b.Fatal(err)
		}
		if err := repo.InitSchema(); err != nil {
			b.Fatal(err)
		}
		seed(b, repo)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = repo.GetByOrderID(ctx, fmt.Sprintf("BCC-BENCH-%07d", rand.Intn(N)))
		}
	})

	b.Run("ShardedListByEmail", func(b *testing.B) {
		repo, err := NewShardedOrderRepository([]*gorm.DB{openSQLite(b), openSQLite(b), openSQLite(b), openSQLite(b)})
		if err != nil {
			b.Fatal(err)
		}
		if err := repo.InitSchema(); err != nil {
			b.Fatal(err)
		}
		seed(b, repo)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = repo.ListByEmail(ctx, fmt.Sprintf("p%03d@example.com", rand.Intn(100)), 5)
		}
	})
}
