// Command-line interface to voxfeat: imports voxel grids into a local store, runs
// feature cleanup pipelines against them, and exports the results.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/janelia-flyem/voxfeat/config"
	"github.com/janelia-flyem/voxfeat/datastructure"
	"github.com/janelia-flyem/voxfeat/export"
	"github.com/janelia-flyem/voxfeat/geometry"
	"github.com/janelia-flyem/voxfeat/pipeline"
	"github.com/janelia-flyem/voxfeat/storage"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

const version = "0.1.0"

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	// Path to TOML configuration file.
	configFile = flag.String("config", "", "")

	// Number of concurrent donor scan partitions.  Overrides [engine] workers.
	numWorkers = flag.Int("workers", 0, "")
)

const helpMessage = `
voxfeat cleans up segmented voxel volumes by removing small or poorly connected
features and reassigning their voxels to neighboring features.

Usage: voxfeat [options] <command>

      -config     =string   Path to TOML configuration file.
      -workers    =number   Number of concurrent donor scan partitions.
      -verbose    (flag)    Run in verbose mode.
  -h, -help       (flag)    Show help message

Commands:

	about
	help
	ls      [structure]
	import  <structure> <dims, e.g., 100x100x50> <cells.arrow> [features=<file.arrow>]
	        [spacing=<x,y,z>] [origin=<x,y,z>]
	run     <pipeline.json>
	export  <structure> <attribute matrix path> <file.arrow> [batch=<tuples>]
	delete  <structure>

Imported grids are stored as an image geometry named "Image" whose per-voxel
arrays live in "Image/CellData".  A features table becomes an attribute matrix
under "Image".
`

// ImageName is the name of the image geometry created by "import".
const ImageName = "Image"

var usage = func() {
	fmt.Print(helpMessage)
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() >= 1 && strings.ToLower(flag.Args()[0]) == "help" {
		*showHelp = true
	}
	if *runVerbose {
		voxfeat.Verbose = true
		voxfeat.SetLogMode(voxfeat.DebugMode)
	}
	if *showHelp || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			log.Fatalln(err)
		}
	}
	cfg.Logging.SetLogger()
	defer voxfeat.Shutdown()
	if *numWorkers > 0 {
		cfg.Engine.Workers = *numWorkers
	}
	if cfg.Engine.Workers == 0 {
		cfg.Engine.Workers = runtime.NumCPU()
	}

	// Capture ctrl+c and other interrupts so running filters stop at the next check.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := voxfeat.Command(flag.Args())
	if err := DoCommand(ctx, cfg, command); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		stop()
		voxfeat.Shutdown()
		os.Exit(1)
	}
}

// DoCommand serves as a switchboard for commands.
func DoCommand(ctx context.Context, cfg *config.Config, cmd voxfeat.Command) error {
	if len(cmd) == 0 {
		return fmt.Errorf("Blank command!")
	}

	switch cmd.Name() {
	case "about":
		return DoAbout(cmd)
	case "ls":
		return withStore(cfg, func(store storage.Store) error { return DoList(store, cmd) })
	case "import":
		return withStore(cfg, func(store storage.Store) error { return DoImport(store, cfg, cmd) })
	case "run":
		return withStore(cfg, func(store storage.Store) error { return DoRun(ctx, store, cfg, cmd) })
	case "export":
		return withStore(cfg, func(store storage.Store) error { return DoExport(store, cmd) })
	case "delete":
		return withStore(cfg, func(store storage.Store) error { return DoDelete(store, cmd) })
	default:
		return fmt.Errorf("unknown command %q; use 'voxfeat help' for a list of commands", cmd.Name())
	}
}

func withStore(cfg *config.Config, fn func(storage.Store) error) error {
	store, err := cfg.OpenStore()
	if err != nil {
		return err
	}
	err = fn(store)
	if cached, ok := store.(*storage.CachedStore); ok {
		voxfeat.Debugf("Store cache hit rate: %.1f%%\n", 100*cached.HitRate())
	}
	if closeErr := store.Close(); err == nil {
		err = closeErr
	}
	return err
}

// DoAbout prints version information and the available filters.
func DoAbout(cmd voxfeat.Command) error {
	fmt.Printf("voxfeat %s (%s)\n", version, runtime.Version())
	fmt.Printf("Storage format: %s\n", storage.FormatVersion)
	fmt.Printf("Filters:\n")
	for _, name := range pipeline.FilterNames() {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

// DoList lists stored structures or, given a name, the objects in one structure.
func DoList(store storage.Store, cmd voxfeat.Command) error {
	var name string
	cmd.CommandArgs(&name)
	if name == "" {
		names, err := storage.StructureNames(store)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No structures stored.")
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	}
	ds, err := storage.LoadStructure(store, name)
	if err != nil {
		return err
	}
	err = ds.Walk(func(path datastructure.DataPath, obj datastructure.Object) error {
		indent := strings.Repeat("  ", len(path)-1)
		switch o := obj.(type) {
		case *datastructure.Image:
			fmt.Printf("%s%s: image %s\n", indent, o.Name(), o.Geom)
		case *datastructure.AttributeMatrix:
			fmt.Printf("%s%s: attribute matrix %v\n", indent, o.Name(), o.TupleShape())
		case datastructure.Array:
			kind := "array"
			if o.IsNeighborList() {
				kind = "neighbor list"
			}
			fmt.Printf("%s%s: %s %s x %v\n", indent, o.Name(), o.DataType(), kind, o.ComponentShape())
		default:
			fmt.Printf("%s%s: group\n", indent, obj.Name())
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("In-memory size: %s\n", humanize.Bytes(uint64(ds.MemoryFootprint())))
	return nil
}

// DoImport builds a structure from Arrow IPC tables of per-voxel and, optionally,
// per-feature arrays.
func DoImport(store storage.Store, cfg *config.Config, cmd voxfeat.Command) error {
	var name, dimsStr, cellsFile string
	cmd.CommandArgs(&name, &dimsStr, &cellsFile)
	if cellsFile == "" {
		return fmt.Errorf("import command must be followed by <structure> <dims> <cells.arrow>")
	}
	dims, err := voxfeat.ParsePoint3d(dimsStr)
	if err != nil {
		return err
	}
	spacing, origin := [3]float32{1, 1, 1}, [3]float32{}
	if s, found := cmd.Parameter(voxfeat.KeySpacing); found {
		if spacing, err = voxfeat.ParseFloat3(s); err != nil {
			return err
		}
	}
	if s, found := cmd.Parameter(voxfeat.KeyOrigin); found {
		if origin, err = voxfeat.ParseFloat3(s); err != nil {
			return err
		}
	}
	geom, err := geometry.NewImageGeomWithSpacing(dims, spacing, origin)
	if err != nil {
		return err
	}

	ds := datastructure.New()
	if err := ds.Insert(nil, datastructure.NewImage(ImageName, geom)); err != nil {
		return err
	}
	imagePath := datastructure.DataPath{ImageName}
	cells, err := readTable(cellsFile)
	if err != nil {
		return err
	}
	cellPath := imagePath.Child(datastructure.CellDataName)
	for _, a := range cells.Arrays() {
		if err := ds.Insert(cellPath, a); err != nil {
			return fmt.Errorf("%s: %w", cellsFile, err)
		}
	}
	if featuresFile, found := cmd.Parameter(voxfeat.KeyFeatures); found {
		features, err := readTable(featuresFile)
		if err != nil {
			return err
		}
		if err := ds.Insert(imagePath, features); err != nil {
			return fmt.Errorf("%s: %w", featuresFile, err)
		}
	}

	codec, err := cfg.Codec()
	if err != nil {
		return err
	}
	if err := storage.SaveStructure(store, name, ds, codec); err != nil {
		return err
	}
	fmt.Printf("Imported %q: %s voxels, %d cell arrays\n", name, humanize.Comma(geom.NumVoxels()), len(cells.Arrays()))
	return nil
}

func readTable(filename string) (*datastructure.AttributeMatrix, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	am, err := export.ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", filename, err)
	}
	return am, nil
}

// DoRun loads the structure named by a pipeline, runs the pipeline, and saves the
// result under the pipeline's output name.
func DoRun(ctx context.Context, store storage.Store, cfg *config.Config, cmd voxfeat.Command) error {
	var pipelineFile string
	cmd.CommandArgs(&pipelineFile)
	if pipelineFile == "" {
		return fmt.Errorf("run command must be followed by the path to a pipeline file")
	}
	p, err := pipeline.Load(pipelineFile)
	if err != nil {
		return err
	}
	p.SetWorkers(cfg.Engine.Workers)

	ds, err := storage.LoadStructure(store, p.Structure)
	if err != nil {
		return err
	}
	report, err := p.Run(ctx, ds, func(msg string) { fmt.Println(msg) })
	if report != nil {
		for _, step := range report.Steps {
			fmt.Printf("%-32s %s\n", step.Filter, step.Elapsed)
		}
	}
	if err != nil {
		return err
	}

	codec, err := cfg.Codec()
	if err != nil {
		return err
	}
	if err := storage.SaveStructure(store, p.Output, ds, codec); err != nil {
		return err
	}
	fmt.Printf("Run %s saved as %q\n", report.ID, p.Output)
	return nil
}

// DoExport writes one attribute matrix of a stored structure as an Arrow IPC file.
func DoExport(store storage.Store, cmd voxfeat.Command) error {
	var name, amPath, filename string
	cmd.CommandArgs(&name, &amPath, &filename)
	if filename == "" {
		return fmt.Errorf("export command must be followed by <structure> <attribute matrix path> <file.arrow>")
	}
	batchSize := export.DefaultBatchSize
	if s, found := cmd.Parameter(voxfeat.KeyBatch); found {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return fmt.Errorf("bad batch size %q", s)
		}
		batchSize = n
	}
	ds, err := storage.LoadStructure(store, name)
	if err != nil {
		return err
	}
	am, err := ds.GetAttributeMatrix(datastructure.NewDataPath(amPath))
	if err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := export.WriteAttributeMatrix(f, am, batchSize); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Exported %d tuples of %q to %s\n", am.NumTuples(), amPath, filename)
	return nil
}

// DoDelete removes a stored structure.
func DoDelete(store storage.Store, cmd voxfeat.Command) error {
	var name string
	cmd.CommandArgs(&name)
	if name == "" {
		return fmt.Errorf("delete command must be followed by a structure name")
	}
	names, err := storage.StructureNames(store)
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == name {
			return storage.DeleteStructure(store, name)
		}
	}
	return fmt.Errorf("no structure %q in store", name)
}
