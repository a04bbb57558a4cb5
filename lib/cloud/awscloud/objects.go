// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package awscloud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bureau-foundation/layercast/lib/cloud"
	"github.com/bureau-foundation/layercast/lib/version"
)

// objectStore keeps one S3 client per region, created on first use.
type objectStore struct {
	credentials *credentials.Credentials

	mu      sync.Mutex
	clients map[string]*minio.Client
}

func newObjectStore() (*objectStore, error) {
	chain := credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.FileAWSCredentials{},
		&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
	})
	return &objectStore{credentials: chain, clients: make(map[string]*minio.Client)}, nil
}

func (s *objectStore) client(region string) (*minio.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if client, ok := s.clients[region]; ok {
		return client, nil
	}
	client, err := minio.New(endpoint(region), &minio.Options{
		Creds:  s.credentials,
		Secure: true,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating S3 client for %s: %w", region, err)
	}
	client.SetAppInfo("layercast", version.Version)
	s.clients[region] = client
	return client, nil
}

func endpoint(region string) string {
	return "s3." + region + ".amazonaws.com"
}

func (s *objectStore) PutFile(ctx context.Context, ref cloud.ObjectRef, path, contentType string) (cloud.PutResult, error) {
	client, err := s.client(ref.Region)
	if err != nil {
		return cloud.PutResult{}, err
	}
	info, err := client.FPutObject(ctx, ref.Bucket, ref.Key, path, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return cloud.PutResult{}, fmt.Errorf("uploading %s: %w", ref, err)
	}
	return cloud.PutResult{VersionID: info.VersionID, Size: info.Size}, nil
}

func (s *objectStore) PutBytes(ctx context.Context, ref cloud.ObjectRef, data []byte, contentType string) (cloud.PutResult, error) {
	client, err := s.client(ref.Region)
	if err != nil {
		return cloud.PutResult{}, err
	}
	info, err := client.PutObject(ctx, ref.Bucket, ref.Key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return cloud.PutResult{}, fmt.Errorf("uploading %s: %w", ref, err)
	}
	return cloud.PutResult{VersionID: info.VersionID, Size: info.Size}, nil
}

// Copy runs a server-side copy through the destination region's
// endpoint.
func (s *objectStore) Copy(ctx context.Context, source, destination cloud.ObjectRef) error {
	client, err := s.client(destination.Region)
	if err != nil {
		return err
	}
	_, err = client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: destination.Bucket, Object: destination.Key},
		minio.CopySrcOptions{Bucket: source.Bucket, Object: source.Key},
	)
	if err != nil {
		return fmt.Errorf("copying %s to %s: %w", source, destination, objectNotFound(err))
	}
	return nil
}

func (s *objectStore) Get(ctx context.Context, ref cloud.ObjectRef) ([]byte, error) {
	client, err := s.client(ref.Region)
	if err != nil {
		return nil, err
	}
	object, err := client.GetObject(ctx, ref.Bucket, ref.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", ref, objectNotFound(err))
	}
	defer object.Close()
	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ref, objectNotFound(err))
	}
	return data, nil
}

func objectNotFound(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %v", cloud.ErrNotFound, err)
	}
	return err
}
