package main

import (
	"cmp"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/fumin/dmrg/block"
	"github.com/fumin/dmrg/kron"
	"github.com/fumin/dmrg/lanczos"
	"github.com/fumin/dmrg/model"
	"github.com/fumin/dmrg/sparse"
)

const (
	fnameDone       = "done.txt"
	fnameStatistics = "statistics.json"
	fnameBlocks     = "blocks.db"

	productKron   = "kron"
	productStored = "stored"
)

var (
	runDir    = flag.String("d", filepath.Join("runs", "dmrg"), "run directory")
	modelName = flag.String("model", model.NameIsing, fmt.Sprintf("model, one of %v", model.Names()))
	lengths   = flag.String("l", "4,6,8,10", "comma separated chain lengths")
	fields    = flag.String("fields", "0.5,1,2", "comma separated magnetic fields")
	coupling  = flag.Float64("coupling", 1, "exchange coupling J")
	jz        = flag.Float64("jz", 1, "Ising part of the Heisenberg exchange")
	threads   = flag.Int("threads", 4, "threads of the Kronecker product")
	product   = flag.String("product", productKron, "matrix vector product, kron or stored")
	jobs      = flag.Int("j", 2, "number of chains solved concurrently")
)

type config struct {
	l      int
	params model.Params
}

func (c config) dir() string {
	return filepath.Join(*runDir, *modelName, strconv.FormatFloat(c.params.H, 'f', -1, 64), strconv.Itoa(c.l))
}

// SectorStatistics are the results of one quantum number sector.
type SectorStatistics struct {
	QuantumNumber int
	Size          int
	Patches       int
	Energy        float64
	Iterations    int
	Residual      float64
	Seconds       float64
}

type Statistics struct {
	Model   string
	L       int
	Field   float64
	Product string
	Threads int
	Energy  float64
	Sectors []SectorStatistics
}

func solveSector(dir string, left, right *block.Block, super *block.Super, conns kron.Connections, qn int) (SectorStatistics, error) {
	stats := SectorStatistics{QuantumNumber: qn}
	d, err := kron.New(left, right, super, qn, conns, kron.NewOptions().Threads(*threads))
	if err != nil {
		return SectorStatistics{}, errors.Wrap(err, "")
	}
	stats.Size, stats.Patches = d.Size(), d.Patches()

	var op lanczos.Operator
	switch *product {
	case productKron:
		op = kron.NewMatrix(d)
	case productStored:
		stored := kron.NewStored(d)
		cooDir := filepath.Join(dir, fmt.Sprintf("qn%d", qn))
		if err := os.MkdirAll(cooDir, os.ModePerm); err != nil {
			return SectorStatistics{}, errors.Wrap(err, "")
		}
		if err := stored.Hamiltonian().WriteCOO(cooDir); err != nil {
			return SectorStatistics{}, errors.Wrap(err, "")
		}
		op = stored
	default:
		return SectorStatistics{}, errors.Errorf("unknown product %q", *product)
	}

	start := time.Now()
	res, err := lanczos.GroundState(op)
	if err != nil {
		return SectorStatistics{}, errors.Wrap(err, "")
	}
	stats.Seconds = time.Since(start).Seconds()
	stats.Energy, stats.Iterations, stats.Residual = res.Energy, res.Iterations, res.Residual
	return stats, nil
}

func solve(ctx context.Context, stack *block.DiskStack, m model.Model, c config) error {
	dir := c.dir()
	donePath := filepath.Join(dir, fnameDone)
	if _, err := os.Stat(donePath); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	left, err := stack.Build(ctx, m, block.SideSystem, c.l/2)
	if err != nil {
		return errors.Wrap(err, "")
	}
	right, err := stack.Build(ctx, m, block.SideEnviron, c.l-c.l/2)
	if err != nil {
		return errors.Wrap(err, "")
	}
	super := block.NewSuper(left, right, m.Fuse)
	conns := block.NewConnections(m, left, right, kron.SystemEnviron)

	stats := Statistics{Model: m.Name(), L: c.l, Field: c.params.H, Product: *product, Threads: *threads, Energy: math.Inf(1)}
	for _, qn := range super.QuantumNumbers() {
		s, err := solveSector(dir, left, right, super, conns, qn)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("%d", qn))
		}
		stats.Sectors = append(stats.Sectors, s)
		stats.Energy = min(stats.Energy, s.Energy)
	}

	b, err := json.Marshal(stats)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := os.WriteFile(filepath.Join(dir, fnameStatistics), b, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	if err := os.WriteFile(donePath, nil, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func gather(dir string) ([]Statistics, error) {
	stats := make([]Statistics, 0)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrap(err, "")
		}
		if d.IsDir() || d.Name() != fnameStatistics {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "")
		}
		var s Statistics
		if err := json.Unmarshal(b, &s); err != nil {
			return errors.Wrap(err, path)
		}
		stats = append(stats, s)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	slices.SortFunc(stats, func(a, b Statistics) int {
		return cmp.Or(cmp.Compare(a.Field, b.Field), cmp.Compare(a.L, b.L))
	})
	return stats, nil
}

func parseList[T any](s string, parse func(string) (T, error)) ([]T, error) {
	vs := make([]T, 0)
	for _, f := range strings.Split(s, ",") {
		v, err := parse(strings.TrimSpace(f))
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%q", f))
		}
		vs = append(vs, v)
	}
	return vs, nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	ctx := context.Background()
	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	ls, err := parseList(*lengths, strconv.Atoi)
	if err != nil {
		return errors.Wrap(err, "")
	}
	hs, err := parseList(*fields, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
	if err != nil {
		return errors.Wrap(err, "")
	}
	for _, l := range ls {
		if l < 2 {
			return errors.Errorf("chain length %d", l)
		}
	}

	store, err := sparse.OpenDiskStore(ctx, filepath.Join(*runDir, fnameBlocks))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer store.Close()

	models := make([]model.Model, 0, len(hs))
	for _, h := range hs {
		m, err := model.New(*modelName, model.Params{J: *coupling, Jz: *jz, H: h})
		if err != nil {
			return errors.Wrap(err, "")
		}
		if err := model.Validate(m); err != nil {
			return errors.Wrap(err, "")
		}
		models = append(models, m)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(*jobs)
	for i, m := range models {
		params := model.Params{J: *coupling, Jz: *jz, H: hs[i]}
		stack := block.NewDiskStack(store, fmt.Sprintf("%s/%#v", m.Name(), params))

		// Chains of the same field share blocks, so they are solved in order of length.
		eg.Go(func() error {
			for _, l := range ls {
				c := config{l: l, params: params}
				if err := solve(ctx, stack, m, c); err != nil {
					return errors.Wrap(err, fmt.Sprintf("%d %f", c.l, c.params.H))
				}
				log.Printf("%s %d %f", m.Name(), c.l, c.params.H)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return errors.Wrap(err, "")
	}

	// Gather results and print them.
	stats, err := gather(filepath.Join(*runDir, *modelName))
	if err != nil {
		return errors.Wrap(err, "")
	}
	fmt.Printf("model,l,h,product,e0,e0/l,sectors,seconds\n")
	for _, s := range stats {
		var seconds float64
		for _, sec := range s.Sectors {
			seconds += sec.Seconds
		}
		fmt.Printf("%s,%d,%f,%s,%f,%f,%d,%f\n", s.Model, s.L, s.Field, s.Product, s.Energy, s.Energy/float64(s.L), len(s.Sectors), seconds)
	}
	return nil
}
