package pandafs

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/pandatools/panda-bundle/fetch"
	"github.com/pandatools/panda-bundle/tree"
	"github.com/pandatools/panda-bundle/util"
)

// sakaiTimeLayout is the leading part of a listing modifiedDate
// (yyyyMMddHHmmssSSS).
const sakaiTimeLayout = "20060102150405"

// FS implements the pandafs FUSE filesystem
type FS struct {
	forest  *tree.Forest
	fetcher fetch.Fetcher
	inodes  *util.InodeRegistry
	mounted time.Time
	log     zerolog.Logger

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string][]byte // fetched contents by URL
}

// NewFS creates a filesystem over forest that downloads files with fetcher.
func NewFS(forest *tree.Forest, fetcher fetch.Fetcher, logger zerolog.Logger) *FS {
	return &FS{
		forest:  forest,
		fetcher: fetcher,
		inodes:  util.NewInodeRegistry(),
		mounted: time.Now(),
		log:     logger,
		cache:   make(map[string][]byte),
	}
}

// Root returns the root directory node
func (f *FS) Root() (fs.Node, error) {
	return &Dir{fs: f}, nil
}

// Mount mounts f read-only at mountpoint and serves requests until the
// filesystem is unmounted or ctx is done.
func (f *FS) Mount(ctx context.Context, mountpoint string) error {
	c, err := fuse.Mount(
		mountpoint,
		fuse.FSName("pandabundle"),
		fuse.Subtype("pandafs"),
		fuse.ReadOnly(),
	)
	if err != nil {
		return fmt.Errorf("failed to mount %s: %w", mountpoint, err)
	}
	defer c.Close()

	stop := context.AfterFunc(ctx, func() {
		f.log.Info().Str("mountpoint", mountpoint).Msg("unmounting")
		if err := fuse.Unmount(mountpoint); err != nil {
			f.log.Error().Err(err).Msg("unmount failed")
		}
	})
	defer stop()

	f.log.Info().Str("mountpoint", mountpoint).Int("records", f.forest.Len()).Msg("mounted")
	return fs.Serve(c, f)
}

// Cached reports how many files have been downloaded so far.
func (f *FS) Cached() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.cache)
}

// load returns the contents of url, downloading them once.
func (f *FS) load(ctx context.Context, url string) ([]byte, error) {
	f.mu.RLock()
	data, ok := f.cache[url]
	f.mu.RUnlock()
	if ok {
		return data, nil
	}

	// The download outlives any single caller; an interrupted open returns
	// EINTR while the others keep waiting on the shared fetch.
	fetchCtx := context.WithoutCancel(ctx)
	ch := f.group.DoChan(url, func() (interface{}, error) {
		resp, err := f.fetcher.Fetch(fetchCtx, url)
		if err != nil {
			f.log.Error().Err(err).Str("url", url).Msg("fetch failed")
			return nil, syscall.EIO
		}
		if !resp.OK {
			f.log.Error().Int("status", resp.Status).Str("url", url).Msg("fetch failed")
			if resp.Status == 404 {
				return nil, syscall.ENOENT
			}
			return nil, syscall.EIO
		}
		f.mu.Lock()
		f.cache[url] = resp.Body
		f.mu.Unlock()
		return resp.Body, nil
	})

	select {
	case <-ctx.Done():
		return nil, syscall.EINTR
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]byte), nil
	}
}

func (f *FS) modified(n *tree.Node) time.Time {
	if len(n.ModifiedDate) >= len(sakaiTimeLayout) {
		if t, err := time.ParseInLocation(sakaiTimeLayout, n.ModifiedDate[:len(sakaiTimeLayout)], time.UTC); err == nil {
			return t
		}
	}
	return f.mounted
}

// direntName turns a title into a usable directory entry name.
func direntName(title string) string {
	return strings.ReplaceAll(title, "/", "_")
}

// Dir implements both Node and Handle for directories. A nil node is the
// mount root, whose children are the forest roots.
type Dir struct {
	fs   *FS
	node *tree.Node
}

func (d *Dir) children() []*tree.Node {
	if d.node == nil {
		return d.fs.forest.Roots()
	}
	return d.node.Children()
}

// Attr returns directory attributes
func (d *Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	if d.node == nil {
		a.Inode = util.RootInode
		a.Mtime = d.fs.mounted
	} else {
		a.Inode = d.fs.inodes.Get(d.node.URL)
		a.Mtime = d.fs.modified(d.node)
	}
	a.Mode = os.ModeDir | 0o555
	a.Ctime = a.Mtime
	a.Atime = time.Now()
	return nil
}

// Lookup resolves file/directory names to nodes
func (d *Dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	for _, child := range d.children() {
		if direntName(child.Title) == name {
			return d.fs.nodeFor(child), nil
		}
	}
	return nil, syscall.ENOENT
}

// ReadDirAll lists the directory in forest order.
func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	children := d.children()
	dirents := make([]fuse.Dirent, 0, len(children))
	for _, child := range children {
		typ := fuse.DT_File
		if child.IsCollection() {
			typ = fuse.DT_Dir
		}
		dirents = append(dirents, fuse.Dirent{
			Inode: d.fs.inodes.Get(child.URL),
			Name:  direntName(child.Title),
			Type:  typ,
		})
	}
	return dirents, nil
}

func (f *FS) nodeFor(n *tree.Node) fs.Node {
	if n.IsCollection() {
		return &Dir{fs: f, node: n}
	}
	return &File{fs: f, node: n}
}

// File implements both Node and Handle for remote files
type File struct {
	fs   *FS
	node *tree.Node
}

// Attr returns file attributes. Before the first open the size is the one
// the listing reported.
func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Inode = f.fs.inodes.Get(f.node.URL)
	a.Mode = 0o444
	a.Size = uint64(max(f.node.Size, 0))

	f.fs.mu.RLock()
	if data, ok := f.fs.cache[f.node.URL]; ok {
		a.Size = uint64(len(data))
	}
	f.fs.mu.RUnlock()

	a.Mtime = f.fs.modified(f.node)
	a.Ctime = a.Mtime
	a.Atime = time.Now()
	return nil
}

// Open downloads the file if needed. Reads bypass the kernel page cache
// because the listed size may not match the downloaded one.
func (f *File) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	if !req.Flags.IsReadOnly() {
		return nil, syscall.EROFS
	}
	if _, err := f.fs.load(ctx, f.node.URL); err != nil {
		return nil, err
	}
	resp.Flags |= fuse.OpenDirectIO
	return f, nil
}

// ReadAll reads the entire file content
func (f *File) ReadAll(ctx context.Context) ([]byte, error) {
	return f.fs.load(ctx, f.node.URL)
}
