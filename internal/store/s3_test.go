/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
)

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	etags   map[string]string
	writes  int
	failPut bool
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte), types: make(map[string]string), etags: make(map[string]string)}
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	etag := f.etags[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data)), ETag: aws.String(etag)}, nil
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut {
		return nil, errors.New("access denied")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	_, exists := f.objects[key]
	if in.IfNoneMatch != nil && exists {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "object exists"}
	}
	if in.IfMatch != nil && (!exists || aws.ToString(in.IfMatch) != f.etags[key]) {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "etag mismatch"}
	}
	f.writes++
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	f.etags[key] = fmt.Sprintf(`"%d"`, f.writes)
	return &s3.PutObjectOutput{ETag: aws.String(f.etags[key])}, nil
}

func TestS3PersistenceLoadMissing(t *testing.T) {
	p := NewS3PersistenceFromClient(newFakeObjects(), "station", "")
	data, ok, err := p.Load(context.Background(), KeyAdvertisements)
	if err != nil || ok || data != nil {
		t.Fatalf("expected clean miss, got %q %v %v", data, ok, err)
	}
}

func TestS3PersistenceSaveAndLoad(t *testing.T) {
	objects := newFakeObjects()
	p := NewS3PersistenceFromClient(objects, "station", "prod/airtime")
	ctx := context.Background()

	if err := p.Save(ctx, KeyMusicRequests, []byte(`[{"id":"r1"}]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	wantKey := "station/prod/airtime/" + KeyMusicRequests + ".json"
	if _, ok := objects.objects[wantKey]; !ok {
		t.Fatalf("expected object at %s, have %v", wantKey, objects.objects)
	}
	if objects.types[wantKey] != "application/json" {
		t.Errorf("content type = %q", objects.types[wantKey])
	}

	data, ok, err := p.Load(ctx, KeyMusicRequests)
	if err != nil || !ok || string(data) != `[{"id":"r1"}]` {
		t.Fatalf("Load = %q %v %v", data, ok, err)
	}
}

func TestS3PersistenceBacksStore(t *testing.T) {
	objects := newFakeObjects()
	ctx := context.Background()

	st := New(NewS3PersistenceFromClient(objects, "station", ""), zerolog.Nop())
	if err := st.Load(ctx); err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	added, err := st.AddAdvertisement(ctx, testAd("Night Owl with Algorithmic Andy", 30))
	if err != nil {
		t.Fatalf("AddAdvertisement: %v", err)
	}

	restarted := New(NewS3PersistenceFromClient(objects, "station", ""), zerolog.Nop())
	if err := restarted.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ads := restarted.Advertisements()
	if len(ads) != 1 || ads[0].ID != added.ID {
		t.Fatalf("expected persisted ad, got %+v", ads)
	}
}

func TestS3PersistenceSaveError(t *testing.T) {
	objects := newFakeObjects()
	objects.failPut = true
	p := NewS3PersistenceFromClient(objects, "station", "")
	if err := p.Save(context.Background(), KeyAdvertisements, []byte(`[]`)); err == nil {
		t.Fatal("expected save error")
	}
}

func TestS3PersistenceConditionalUpdate(t *testing.T) {
	exerciseUpdate(t, NewS3PersistenceFromClient(newFakeObjects(), "station", ""), true)
}
