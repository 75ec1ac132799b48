package sequence

import (
	"fmt"
	"path/filepath"

	"plantmerge/internal/fileutil"
)

// OutputExt is the extension of every output artifact, whatever the source
// extension was.
const OutputExt = ".png"

// Member is one image of a group.
type Member struct {
	Day    int    // 1-based position within the group
	Source string // absolute source path
	Output string // output file name (no directory)
}

// Group is a complete run of consecutive images from one folder.
type Group struct {
	ID      int
	Folder  string
	Members []Member
}

// OutputName returns the artifact name for a group id and day index, e.g.
// plant00001_day01.png.
func OutputName(id, day int) string {
	return fmt.Sprintf("plant%05d_day%02d%s", id, day, OutputExt)
}

// Plan partitions files into consecutive chunks of size, drops a trailing
// chunk shorter than size, and numbers the surviving chunks from nextID. It
// returns the groups and the id to use for the next group. files must already
// be selected and sorted.
func Plan(folder string, files []string, size, nextID int) ([]Group, int) {
	if size < 1 {
		return nil, nextID
	}
	complete := len(files) / size
	groups := make([]Group, 0, complete)
	for c := 0; c < complete; c++ {
		chunk := files[c*size : (c+1)*size]
		g := Group{ID: nextID, Folder: folder, Members: make([]Member, 0, size)}
		for i, name := range chunk {
			day := i + 1
			g.Members = append(g.Members, Member{
				Day:    day,
				Source: filepath.Join(folder, name),
				Output: OutputName(nextID, day),
			})
		}
		groups = append(groups, g)
		nextID++
	}
	return groups, nextID
}

// Copier copies one source file to a destination path.
type Copier interface {
	Copy(src, dst string) (fileutil.CopyResult, error)
}

// FileCopier copies with metadata preservation through fileutil.
type FileCopier struct {
	Verify bool
}

// Copy implements Copier.
func (c FileCopier) Copy(src, dst string) (fileutil.CopyResult, error) {
	return fileutil.CopyFilePreserve(src, dst, c.Verify)
}

// Artifact records one completed copy.
type Artifact struct {
	Member
	GroupID int
	Size    int64
	SHA256  string
}

// Materialize copies every member of g into outDir in day order. The first
// failure stops the group and is returned; artifacts copied before it are
// returned alongside the error.
func Materialize(g Group, outDir string, copier Copier) ([]Artifact, error) {
	artifacts := make([]Artifact, 0, len(g.Members))
	for _, m := range g.Members {
		dst := filepath.Join(outDir, m.Output)
		res, err := copier.Copy(m.Source, dst)
		if err != nil {
			return artifacts, fmt.Errorf("group %d day %d: copy %s: %w", g.ID, m.Day, m.Source, err)
		}
		artifacts = append(artifacts, Artifact{
			Member:  m,
			GroupID: g.ID,
			Size:    res.Size,
			SHA256:  res.SHA256,
		})
	}
	return artifacts, nil
}
