package index

import (
	"context"
	"fmt"
	"testing"
)

func makeBenchDoc(i int) Document {
	return Document{
		TypeID: fmt.Sprintf("type_%d", i%3),
		Key:    fmt.Sprintf("%d", i),
		Fields: map[string]Field{
			"title": {Boost: 2, Value: fmt.Sprintf("Entity %d about git docker kubernetes", i)},
			"body":  {Boost: 1, Value: "Body text with various keywords like search index boost"},
		},
	}
}

func BenchmarkBleveIndex_Upsert(b *testing.B) {
	ctx := context.Background()
	idx, err := Open(ctx, "")
	if err != nil {
		b.Fatal(err)
	}
	defer idx.Close()

	b.ResetTimer()
	for i := range b.N {
		if err := idx.Upsert(ctx, makeBenchDoc(i)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBleveIndex_Search(b *testing.B) {
	ctx := context.Background()
	idx, err := Open(ctx, "")
	if err != nil {
		b.Fatal(err)
	}
	defer idx.Close()

	docs := make([]Document, 1000)
	for i := range docs {
		docs[i] = makeBenchDoc(i)
	}
	if err := idx.Upsert(ctx, docs...); err != nil {
		b.Fatal(err)
	}
	q := bucketQuery(idx, "docker")

	b.ResetTimer()
	for range b.N {
		if _, err := idx.Search(ctx, q, SearchOptions{Size: 10}); err != nil {
			b.Fatal(err)
		}
	}
}
