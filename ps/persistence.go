package ps

import (
	"errors"
	"os"
	"sync"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
	"github.com/nickyhof/RouteDB/core"
)

var (
	ErrNotInitialized = errors.New("persistence layer not initialized")
)

// DefaultIdentity authors commits when no identity is configured.
var DefaultIdentity = core.Identity{Name: "RouteDB", Email: "routedb@localhost"}

// Persistence is a git-backed Store: every mutating call is one commit
// whose tree holds table schemas and records as JSON blobs.
type Persistence struct {
	repo         *git.Repository
	mu           sync.RWMutex
	identity     core.Identity
	isMemoryMode bool
}

// IsInitialized returns true if the persistence layer has a valid repository
func (p *Persistence) IsInitialized() bool {
	return p != nil && p.repo != nil
}

// ensureInitialized checks if the persistence layer is initialized and returns an error if not
func (p *Persistence) ensureInitialized() error {
	if !p.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

// SetIdentity changes the author of subsequent commits.
func (p *Persistence) SetIdentity(identity core.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identity = identity
}

func NewMemoryPersistence() (*Persistence, error) {
	wt := memfs.New()
	storer := memory.NewStorage()

	repo, err := git.Init(storer, git.WithWorkTree(wt))
	if err != nil {
		return nil, err
	}

	return &Persistence{
		repo:         repo,
		identity:     DefaultIdentity,
		isMemoryMode: true,
	}, nil
}

// NewFilePersistence opens the repository under baseDir, initializing it
// when it does not exist yet.
func NewFilePersistence(baseDir string) (*Persistence, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(baseDir)
	fs, err := wt.Chroot(".git")
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorageWithOptions(
		fs,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository

	_, statErr := os.Stat(fs.Root())
	if statErr != nil {
		// Directory doesn't exist, initialize new repo
		repo, err = git.Init(storer, git.WithWorkTree(wt))
		if err != nil {
			return nil, err
		}
	} else {
		repo, err = git.Open(storer, wt)
		if err != nil {
			return nil, err
		}
	}

	return &Persistence{
		repo:     repo,
		identity: DefaultIdentity,
	}, nil
}
