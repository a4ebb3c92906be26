// Package storage owns the upload and output folders. Each processing run
// writes into its own folder under the processed root so that concurrent
// runs never clear or overwrite each other's files.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"contact-splitter/internal/config"
	"contact-splitter/internal/helper"
	"contact-splitter/internal/models"
)

var ErrNotFound = errors.New("file not found")

type Workspace struct {
	uploadDir    string
	processedDir string
}

// NewWorkspace creates the upload and processed roots if needed.
func NewWorkspace(cfg config.StorageConfig) (*Workspace, error) {
	for _, dir := range []string{cfg.UploadDir, cfg.ProcessedDir} {
		if err := helper.CreateFolder(dir); err != nil {
			return nil, err
		}
	}
	return &Workspace{uploadDir: cfg.UploadDir, processedDir: cfg.ProcessedDir}, nil
}

// NewRun allocates a run id. No folder is created until ResetOutput.
func (w *Workspace) NewRun() (string, error) {
	return helper.GenerateUUID()
}

// SaveUpload stores r under a random name keeping ext, and returns the path.
func (w *Workspace) SaveUpload(r io.Reader, ext string) (string, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return "", err
	}
	path := filepath.Join(w.uploadDir, id+strings.ToLower(ext))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return path, nil
}

// RemoveUpload deletes a stored upload once it has been processed.
func (w *Workspace) RemoveUpload(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", path).Msg("Failed to remove upload")
	}
}

// ResetOutput empties the output folder of runID, creating it when missing,
// and returns its path.
func (w *Workspace) ResetOutput(runID string) (string, error) {
	dir, err := w.runDir(runID)
	if err != nil {
		return "", err
	}
	if err := helper.CreateFolder(dir); err != nil {
		return "", err
	}
	if err := helper.ClearFolder(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// List returns the output files of runID ordered by chunk index.
func (w *Workspace) List(runID string) ([]string, error) {
	dir, err := w.runDir(runID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		return chunkIndex(names[i]) < chunkIndex(names[j])
	})
	return names, nil
}

// Path resolves an output file of runID, refusing anything outside the run folder.
func (w *Workspace) Path(runID, name string) (string, error) {
	dir, err := w.runDir(runID)
	if err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrNotFound
	}
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrNotFound
	}
	return path, nil
}

func (w *Workspace) runDir(runID string) (string, error) {
	if !helper.IsUUID(runID) {
		return "", ErrNotFound
	}
	return filepath.Join(w.processedDir, runID), nil
}

// chunkIndex extracts N from PlanilhaUP_N.ext; unknown names sort last.
func chunkIndex(name string) int {
	stem := strings.TrimSuffix(strings.TrimPrefix(name, models.OutputBaseName), filepath.Ext(name))
	n, err := strconv.Atoi(stem)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}
