// Package fsadapter exposes a VirtualFile engine as a FUSE filesystem: a
// single flat directory of "r.X.Z.mca" region files whose contents are
// synthesized entirely by the engine, never touching disk.
package fsadapter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/OCharnyshevich/regionfs/internal/regionfs/engine"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/inode"
	"github.com/OCharnyshevich/regionfs/internal/regionfs/region"
)

// attrTTL is how long the kernel may cache attributes and directory entries
// for region files. Region files never change shape (only their synthesized
// contents do), so a short TTL is mostly about tolerating clock skew.
const attrTTL = time.Second

// FileSystem implements fuseops.FileSystem over a VirtualFile engine. Every
// region inode is derived deterministically from its (x, z) coordinates via
// the inode package, so no persistent inode table is required; mu only
// guards the set of region files the adapter has seen, which backs ReadDir.
type FileSystem struct {
	fuseutil.NotImplementedFileSystem

	Engine *engine.VirtualFile
	Log    *slog.Logger

	mu      sync.Mutex
	regions map[fuseops.InodeID]regionCoords
}

type regionCoords struct {
	x, z int32
	name string
}

// New builds a FileSystem serving eng's chunks as region files.
func New(eng *engine.VirtualFile, log *slog.Logger) *FileSystem {
	if log == nil {
		log = slog.Default()
	}
	return &FileSystem{
		Engine:  eng,
		Log:     log,
		regions: make(map[fuseops.InodeID]regionCoords),
	}
}

// Mount mounts the filesystem at mountpoint and returns the underlying
// *fuse.MountedFileSystem for the caller to Join/Unmount.
func Mount(ctx context.Context, fs *FileSystem, mountpoint string) (*fuse.MountedFileSystem, error) {
	server := fuseutil.NewFileSystemServer(fs)
	return fuse.Mount(mountpoint, server, &fuse.MountConfig{
		FSName:  "regionfs",
		Options: map[string]string{"allow_other": ""},
	})
}

// parseRegionFilename parses a "r.X.Z.mca" name into its coordinates.
func parseRegionFilename(name string) (x, z int32, ok bool) {
	parts := strings.Split(name, ".")
	if len(parts) != 4 || parts[0] != "r" || parts[3] != "mca" {
		return 0, 0, false
	}
	xi, err := strconv.ParseInt(parts[1], 10, 32)
	if err != nil {
		return 0, 0, false
	}
	zi, err := strconv.ParseInt(parts[2], 10, 32)
	if err != nil {
		return 0, 0, false
	}
	return int32(xi), int32(zi), true
}

func regionFilename(x, z int32) string {
	return fmt.Sprintf("r.%d.%d.mca", x, z)
}

func dirAttributes() fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Nlink: 2,
		Mode:  os.ModeDir | 0o755,
		Atime: time.Now(),
		Mtime: time.Now(),
		Ctime: time.Now(),
	}
}

func fileAttributes(ino fuseops.InodeID) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:  uint64(region.FileSize),
		Nlink: 1,
		Mode:  0o644,
		Atime: time.Now(),
		Mtime: time.Now(),
		Ctime: time.Now(),
	}
}

func (fs *FileSystem) track(ino fuseops.InodeID, x, z int32) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.regions[ino] = regionCoords{x: x, z: z, name: regionFilename(x, z)}
}

func (fs *FileSystem) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	op.BlockSize = region.SectorBytes
	op.IoSize = 65536
	return nil
}

func (fs *FileSystem) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	if op.Parent != fuseops.RootInodeID {
		return fuse.ENOENT
	}
	x, z, ok := parseRegionFilename(op.Name)
	if !ok {
		return fuse.ENOENT
	}
	ino := fuseops.InodeID(inode.PackRegion(x, z))
	fs.track(ino, x, z)
	op.Entry = fuseops.ChildInodeEntry{
		Child:                ino,
		Attributes:           fileAttributes(ino),
		AttributesExpiration: time.Now().Add(attrTTL),
		EntryExpiration:      time.Now().Add(attrTTL),
	}
	return nil
}

func (fs *FileSystem) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	op.AttributesExpiration = time.Now().Add(attrTTL)
	if op.Inode == fuseops.RootInodeID {
		op.Attributes = dirAttributes()
		return nil
	}
	if !inode.IsRegion(uint64(op.Inode)) {
		return fuse.ENOENT
	}
	op.Attributes = fileAttributes(op.Inode)
	return nil
}

// SetInodeAttributes accepts any requested change but never actually
// resizes or re-permissions a region file: its shape is fixed by the
// region layout, not by filesystem metadata.
func (fs *FileSystem) SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) error {
	if op.Inode == fuseops.RootInodeID {
		op.Attributes = dirAttributes()
		return nil
	}
	if !inode.IsRegion(uint64(op.Inode)) {
		return fuse.ENOENT
	}
	if op.Size != nil && *op.Size != uint64(region.FileSize) {
		fs.Log.Debug("ignoring resize of synthesized region file", "inode", op.Inode, "requested_size", *op.Size)
	}
	op.Attributes = fileAttributes(op.Inode)
	return nil
}

func (fs *FileSystem) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	if op.Inode != fuseops.RootInodeID {
		return fuse.ENOENT
	}
	return nil
}

func (fs *FileSystem) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	if op.Inode != fuseops.RootInodeID {
		return fuse.ENOENT
	}

	fs.mu.Lock()
	entries := make([]fuseutil.Dirent, 0, len(fs.regions))
	for ino, rc := range fs.regions {
		entries = append(entries, fuseutil.Dirent{
			Inode: ino,
			Name:  rc.name,
			Type:  fuseutil.DT_File,
		})
	}
	fs.mu.Unlock()

	for i := range entries {
		entries[i].Offset = fuseops.DirOffset(i + 1)
	}

	if op.Offset > fuseops.DirOffset(len(entries)) {
		return fuse.EIO
	}
	for _, e := range entries[op.Offset:] {
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], e)
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	return nil
}

// CreateFile handles Minecraft creating a brand-new region file, tracking
// it for ReadDir without ever allocating real storage.
func (fs *FileSystem) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	if op.Parent != fuseops.RootInodeID {
		return fuse.ENOENT
	}
	x, z, ok := parseRegionFilename(op.Name)
	if !ok {
		return syscall.EACCES
	}
	ino := fuseops.InodeID(inode.PackRegion(x, z))
	fs.track(ino, x, z)
	op.Entry = fuseops.ChildInodeEntry{
		Child:                ino,
		Attributes:           fileAttributes(ino),
		AttributesExpiration: time.Now().Add(attrTTL),
		EntryExpiration:      time.Now().Add(attrTTL),
	}
	return nil
}

func (fs *FileSystem) Unlink(ctx context.Context, op *fuseops.UnlinkOp) error {
	if op.Parent != fuseops.RootInodeID {
		return fuse.ENOENT
	}
	if x, z, ok := parseRegionFilename(op.Name); ok {
		fs.mu.Lock()
		delete(fs.regions, fuseops.InodeID(inode.PackRegion(x, z)))
		fs.mu.Unlock()
	}
	return nil
}

func (fs *FileSystem) Rename(ctx context.Context, op *fuseops.RenameOp) error {
	if op.OldParent != fuseops.RootInodeID || op.NewParent != fuseops.RootInodeID {
		return fuse.ENOENT
	}
	return nil
}

func (fs *FileSystem) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	if !inode.IsRegion(uint64(op.Inode)) {
		return fuse.ENOENT
	}
	return nil
}

func (fs *FileSystem) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	x, z, ok := inode.UnpackRegion(uint64(op.Inode))
	if !ok {
		return fuse.ENOENT
	}
	data, err := fs.Engine.ReadAt(ctx, op.Offset, len(op.Dst), x, z)
	if err != nil {
		return err
	}
	op.BytesRead = copy(op.Dst, data)
	return nil
}

func (fs *FileSystem) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	x, z, ok := inode.UnpackRegion(uint64(op.Inode))
	if !ok {
		return fuse.ENOENT
	}
	return fs.Engine.WriteAt(ctx, op.Offset, op.Data, x, z)
}

func (fs *FileSystem) FlushFile(ctx context.Context, op *fuseops.FlushFileOp) error {
	if !inode.IsRegion(uint64(op.Inode)) {
		return fuse.ENOENT
	}
	return nil
}

func (fs *FileSystem) SyncFile(ctx context.Context, op *fuseops.SyncFileOp) error {
	if !inode.IsRegion(uint64(op.Inode)) {
		return fuse.ENOENT
	}
	return nil
}

func (fs *FileSystem) GetXattr(ctx context.Context, op *fuseops.GetXattrOp) error {
	return syscall.ENODATA
}
