package block

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/fumin/dmrg/model"
	"github.com/fumin/dmrg/sparse"
)

// Side tells which end of a chain a block grows from.
type Side string

const (
	SideSystem  Side = "system"
	SideEnviron Side = "environ"
)

// DiskStack keeps the blocks of a chain on disk, so that later runs can continue growing them.
type DiskStack struct {
	store *sparse.DiskStore
	// name identifies the model and its couplings.
	name string
}

// NewDiskStack returns a stack of blocks in store.
// Blocks of different models or couplings must be given different names.
func NewDiskStack(store *sparse.DiskStore, name string) *DiskStack {
	return &DiskStack{store: store, name: name}
}

func (s *DiskStack) prefix(side Side, sites int) string {
	return fmt.Sprintf("%s/%s/%d/", s.name, side, sites)
}

// Push stores b.
func (s *DiskStack) Push(ctx context.Context, side Side, b *Block) error {
	prefix := s.prefix(side, b.Sites())
	if err := s.store.Put(ctx, prefix+"h", b.h); err != nil {
		return errors.Wrap(err, "")
	}
	for name, op := range b.ops {
		if err := s.store.Put(ctx, prefix+"op/"+name, op); err != nil {
			return errors.Wrap(err, name)
		}
	}
	// The quantum numbers are written last and mark the block as complete.
	if err := s.store.PutInts(ctx, prefix+"qn", b.qns); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Get loads the block of the given number of sites.
// It returns false if no complete block is stored.
func (s *DiskStack) Get(ctx context.Context, side Side, sites int) (*Block, bool, error) {
	prefix := s.prefix(side, sites)
	qns, err := s.store.GetInts(ctx, prefix+"qn")
	if err != nil {
		return nil, false, errors.Wrap(err, "")
	}
	if len(qns) == 0 {
		return nil, false, nil
	}

	b := &Block{sites: sites, qns: qns, ops: make(map[string]*sparse.CSR)}
	b.h, err = s.store.Get(ctx, prefix+"h")
	if err != nil {
		return nil, false, errors.Wrap(err, "")
	}
	names, err := s.store.Names(ctx, prefix+"op/")
	if err != nil {
		return nil, false, errors.Wrap(err, "")
	}
	for _, name := range names {
		op, err := s.store.Get(ctx, name)
		if err != nil {
			return nil, false, errors.Wrap(err, name)
		}
		b.ops[strings.TrimPrefix(name, prefix+"op/")] = op
	}
	return b, true, nil
}

// Build returns the block of the given number of sites, growing it from the largest stored block and storing every new block.
func (s *DiskStack) Build(ctx context.Context, m model.Model, side Side, sites int) (*Block, error) {
	if sites < 1 {
		return nil, errors.Errorf("%d sites", sites)
	}

	var b *Block
	n := sites
	for ; n > 0; n-- {
		stored, ok, err := s.Get(ctx, side, n)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%d", n))
		}
		if ok {
			b = stored
			break
		}
	}
	if b == nil {
		b = Site(m)
		if side == SideEnviron {
			b = b.Conj()
		}
		if err := s.Push(ctx, side, b); err != nil {
			return nil, errors.Wrap(err, "")
		}
	}

	for b.Sites() < sites {
		var err error
		switch side {
		case SideSystem:
			b, err = GrowRight(b, m)
		case SideEnviron:
			// Environment blocks are stored conjugated.
			b, err = GrowLeft(m, b.Conj())
			if err == nil {
				b = b.Conj()
			}
		default:
			err = errors.Errorf("unknown side %q", side)
		}
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		if err := s.Push(ctx, side, b); err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	return b, nil
}
