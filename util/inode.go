package util

import (
	"sync"

	"github.com/taigrr/colorhash"
)

// RootInode is reserved for the filesystem root.
const RootInode uint64 = 1

// InodeRegistry hands out stable inode numbers keyed by remote address.
// The first choice for a key is derived from its colorhash; on collision the
// next free number is taken.
type InodeRegistry struct {
	mu     sync.Mutex
	byKey  map[string]uint64
	byNode map[uint64]string
}

// NewInodeRegistry returns an empty registry with the root inode reserved.
func NewInodeRegistry() *InodeRegistry {
	return &InodeRegistry{
		byKey:  map[string]uint64{"": RootInode},
		byNode: map[uint64]string{RootInode: ""},
	}
}

// Get returns the inode for key, allocating one on first use.
func (r *InodeRegistry) Get(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ino, ok := r.byKey[key]; ok {
		return ino
	}
	h := colorhash.HashString(key)
	if h < 0 {
		h = -h
	}
	ino := uint64(h) + RootInode + 1
	for {
		if _, taken := r.byNode[ino]; !taken {
			break
		}
		ino++
	}
	r.byKey[key] = ino
	r.byNode[ino] = key
	return ino
}

// Key returns the key an inode was allocated for.
func (r *InodeRegistry) Key(ino uint64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.byNode[ino]
	if !ok {
		return "", ErrInodeNotFound
	}
	return key, nil
}

// Len returns the number of allocated inodes, the root included.
func (r *InodeRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byNode)
}
