package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReserveOutputFilesPicksFirstFreeSuffix(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(cwd)

	paths, err := reserveOutputFiles("net.cfg")
	if err != nil {
		t.Fatalf("reserveOutputFiles: %v", err)
	}
	if filepath.Base(paths.progress) != "progress_net.cfg_0000.out" {
		t.Fatalf("progress path = %q, want suffix 0000", paths.progress)
	}

	if err := os.WriteFile(paths.progress, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	paths2, err := reserveOutputFiles("net.cfg")
	if err != nil {
		t.Fatalf("reserveOutputFiles (second call): %v", err)
	}
	if filepath.Base(paths2.progress) != "progress_net.cfg_0001.out" {
		t.Fatalf("progress path = %q, want suffix 0001 after first is taken", paths2.progress)
	}
}

func TestReserveOutputFilesDerivesSiblingNames(t *testing.T) {
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(cwd)

	paths, err := reserveOutputFiles("topology/net.cfg")
	if err != nil {
		t.Fatalf("reserveOutputFiles: %v", err)
	}
	if filepath.Base(paths.data) != "data_net.cfg_0000.csv" {
		t.Fatalf("data path = %q", paths.data)
	}
	if filepath.Base(paths.metadata) != "metadata_net.cfg_0000.data" {
		t.Fatalf("metadata path = %q", paths.metadata)
	}
	if filepath.Base(paths.mempool) != "mempool_net.cfg_0000.csv" {
		t.Fatalf("mempool path = %q", paths.mempool)
	}
}
