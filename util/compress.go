// util/compress.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// EncodeCompressedObject msgpack-encodes obj and zstd-compresses the result.
func EncodeCompressedObject(w io.Writer, obj any) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(zw).Encode(obj); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// DecodeCompressedObject is the inverse of EncodeCompressedObject.
func DecodeCompressedObject(r io.Reader, obj any) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer zr.Close()

	return msgpack.NewDecoder(zr).Decode(obj)
}

// CompressObject returns the zstd-compressed msgpack encoding of obj.
func CompressObject(obj any) ([]byte, error) {
	var b bytes.Buffer
	if err := EncodeCompressedObject(&b, obj); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
