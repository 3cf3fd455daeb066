// cmd/vnavsim/storage.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	fpath "path/filepath"
	"strings"

	"github.com/openfmgc/vnav/util"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// StorageBackend is where computed profile reports are archived.
type StorageBackend interface {
	List(path string) (map[string]int64, error)
	OpenRead(path string) (io.ReadCloser, error)
	Store(path string, r io.Reader) (int64, error)
	Close()
}

// MakeStorageBackend returns the backend for the given location:
// gs://bucket, s3://bucket, or a local directory.
func MakeStorageBackend(ctx context.Context, location string) (StorageBackend, error) {
	switch {
	case strings.HasPrefix(location, "gs://"):
		return MakeGCSBackend(ctx, strings.TrimPrefix(location, "gs://"))
	case strings.HasPrefix(location, "s3://"):
		return MakeS3Backend(ctx, strings.TrimPrefix(location, "s3://"))
	case location == "":
		return nil, errors.New("no archive location given")
	default:
		return MakeLocalBackend(location)
	}
}

// StoreObject stores the zstd-compressed msgpack encoding of object and
// returns its compressed size.
func StoreObject(b StorageBackend, path string, object any) (int64, error) {
	var buf bytes.Buffer
	if err := util.EncodeCompressedObject(&buf, object); err != nil {
		return 0, err
	}
	return b.Store(path, &buf)
}

// RetrieveObject decodes an object stored with StoreObject.
func RetrieveObject(b StorageBackend, path string, object any) error {
	r, err := b.OpenRead(path)
	if err != nil {
		return err
	}
	defer r.Close()

	return util.DecodeCompressedObject(r, object)
}

///////////////////////////////////////////////////////////////////////////
// DryRunBackend

type DryRunBackend struct {
	b StorageBackend // for read-only operations
}

func (d DryRunBackend) List(path string) (map[string]int64, error) {
	return d.b.List(path)
}

func (d DryRunBackend) OpenRead(path string) (io.ReadCloser, error) {
	return d.b.OpenRead(path)
}

func (d DryRunBackend) Store(path string, r io.Reader) (int64, error) {
	return io.Copy(io.Discard, r)
}

func (d DryRunBackend) Close() { d.b.Close() }

///////////////////////////////////////////////////////////////////////////
// LocalBackend

type LocalBackend struct {
	root string
}

func MakeLocalBackend(root string) (StorageBackend, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	return &LocalBackend{root: root}, nil
}

func (l *LocalBackend) List(path string) (map[string]int64, error) {
	m := make(map[string]int64)
	base := fpath.Join(l.root, fpath.Clean(path))
	err := fpath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		} else if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := fpath.Rel(l.root, p)
		if err != nil {
			return err
		}
		m[fpath.ToSlash(rel)] = info.Size()
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	return m, err
}

func (l *LocalBackend) OpenRead(path string) (io.ReadCloser, error) {
	return os.Open(fpath.Join(l.root, path))
}

func (l *LocalBackend) Store(path string, r io.Reader) (int64, error) {
	fn := fpath.Join(l.root, path)
	if err := os.MkdirAll(fpath.Dir(fn), 0755); err != nil {
		return 0, err
	}

	f, err := os.Create(fn)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		return n, err
	}
	return n, f.Close()
}

func (l *LocalBackend) Close() {}

///////////////////////////////////////////////////////////////////////////
// GCSBackend

type GCSBackend struct {
	ctx    context.Context
	client *storage.Client
	bucket *storage.BucketHandle
}

// MakeGCSBackend uses the service account credentials in the
// VNAV_GCS_CREDENTIALS environment variable if it is set and the
// application default credentials otherwise.
func MakeGCSBackend(ctx context.Context, bucketName string) (StorageBackend, error) {
	var opts []option.ClientOption
	if credsJSON := os.Getenv("VNAV_GCS_CREDENTIALS"); credsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credsJSON)))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &GCSBackend{
		ctx:    ctx,
		client: client,
		bucket: client.Bucket(bucketName),
	}, nil
}

func (g *GCSBackend) List(path string) (map[string]int64, error) {
	path = fpath.Clean(path)
	query := storage.Query{
		Projection: storage.ProjectionNoACL,
		Prefix:     path,
	}

	m := make(map[string]int64)
	it := g.bucket.Objects(g.ctx, &query)
	for {
		if obj, err := it.Next(); err == iterator.Done {
			break
		} else if err != nil {
			return nil, err
		} else if fpath.Clean(obj.Name) != path {
			m[obj.Name] = obj.Size
		}
	}

	return m, nil
}

func (g *GCSBackend) OpenRead(path string) (io.ReadCloser, error) {
	return g.bucket.Object(path).NewReader(g.ctx)
}

func (g *GCSBackend) Store(path string, r io.Reader) (int64, error) {
	objw := g.bucket.Object(path).NewWriter(g.ctx)
	n, err := io.Copy(objw, r)
	if err != nil {
		objw.Close()
		return n, err
	}
	return n, objw.Close()
}

func (g *GCSBackend) Close() { g.client.Close() }

///////////////////////////////////////////////////////////////////////////
// S3Backend

type S3Backend struct {
	ctx    context.Context
	client *s3.Client
	bucket string
}

// MakeS3Backend loads the default AWS configuration. Static credentials
// in VNAV_S3_ACCESS_KEY_ID and VNAV_S3_SECRET_ACCESS_KEY take precedence
// over it, and VNAV_S3_ENDPOINT selects an S3-compatible service.
func MakeS3Backend(ctx context.Context, bucket string) (StorageBackend, error) {
	var opts []func(*config.LoadOptions) error
	if region := os.Getenv("VNAV_S3_REGION"); region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	id, secret := os.Getenv("VNAV_S3_ACCESS_KEY_ID"), os.Getenv("VNAV_S3_SECRET_ACCESS_KEY")
	if id != "" && secret != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(id, secret, "")))
	} else if id != "" || secret != "" {
		return nil, errors.New("VNAV_S3_ACCESS_KEY_ID and VNAV_S3_SECRET_ACCESS_KEY must be set together")
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", bucket, err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if ep := os.Getenv("VNAV_S3_ENDPOINT"); ep != "" {
			o.BaseEndpoint = aws.String(ep)
			o.UsePathStyle = true
		}
	})

	return &S3Backend{ctx: ctx, client: client, bucket: bucket}, nil
}

func (s *S3Backend) List(path string) (map[string]int64, error) {
	m := make(map[string]int64)
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(fpath.Clean(path)),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(s.ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			m[aws.ToString(obj.Key)] = aws.ToInt64(obj.Size)
		}
	}
	return m, nil
}

func (s *S3Backend) OpenRead(path string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(s.ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (s *S3Backend) Store(path string, r io.Reader) (int64, error) {
	// PutObject wants a seekable body so that it can sign the payload.
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	_, err = s.client.PutObject(s.ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
		Body:   bytes.NewReader(b),
	})
	if err != nil {
		return 0, err
	}
	return int64(len(b)), nil
}

func (s *S3Backend) Close() {}
