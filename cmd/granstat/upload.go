// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// parseGSURL splits a gs://bucket/prefix URL.
func parseGSURL(url string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(url, "gs://")
	if !ok {
		return "", "", fmt.Errorf("upload destination %q: want gs://bucket/prefix", url)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("upload destination %q: missing bucket", url)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// objectName returns the object a local file is uploaded to.
func objectName(prefix, file string) string {
	return path.Join(prefix, filepath.Base(file))
}

func contentType(file string) string {
	switch filepath.Ext(file) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".png":
		return "image/png"
	}
	return "application/octet-stream"
}

// upload copies files to the Cloud Storage location dest. If
// credentials is empty, the default application credentials are used.
func upload(ctx context.Context, dest, credentials string, files []string) error {
	bucket, prefix, err := parseGSURL(dest)
	if err != nil {
		return err
	}
	var opts []option.ClientOption
	if credentials != "" {
		opts = append(opts, option.WithCredentialsFile(credentials))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("storage client: %w", err)
	}
	defer client.Close()

	b := client.Bucket(bucket)
	for _, file := range files {
		if err := uploadFile(ctx, b, objectName(prefix, file), file); err != nil {
			return err
		}
	}
	return nil
}

func uploadFile(ctx context.Context, b *storage.BucketHandle, name, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := b.Object(name).NewWriter(ctx)
	w.ContentType = contentType(file)
	if err := writeObject(w, cancel, f); err != nil {
		return fmt.Errorf("upload %s: %w", file, err)
	}
	return nil
}

// writeObject copies r to the object writer w, whose context is
// cancelled by cancel. Closing w commits the object, so a failed copy
// cancels instead.
func writeObject(w io.WriteCloser, cancel context.CancelFunc, r io.Reader) error {
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		return err
	}
	return w.Close()
}
