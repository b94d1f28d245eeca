// Package check implements the formatting verification workflow: it lists the
// source files of a commit, runs each one through a formatter and reports a
// single evolving commit status.
package check

import (
	"fmt"
	"strings"
)

// Repository identifies a repository by owner and name.
type Repository struct {
	Owner string
	Name  string
}

// ParseRepository splits an "owner/name" string.
func ParseRepository(fullName string) (Repository, error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repository{}, fmt.Errorf("invalid repository %q: want owner/name", fullName)
	}
	return Repository{Owner: owner, Name: name}, nil
}

func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// Target is the immutable context of one run. Every collaborator call made
// during the run receives the same Target, so all reads are pinned to Ref.
type Target struct {
	Repo           Repository
	Ref            string // commit SHA
	InstallationID int64  // GitHub App installation, 0 when using a static token
}

// ShortRef returns the first seven characters of the commit SHA.
func (t Target) ShortRef() string {
	if len(t.Ref) > 7 {
		return t.Ref[:7]
	}
	return t.Ref
}
