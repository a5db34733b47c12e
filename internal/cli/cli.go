// Package cli holds the command-line interface of the celledges tool.
package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/notargets/polymesh/celledge"
	"github.com/notargets/polymesh/mesh"
	"github.com/notargets/polymesh/meshobject"
	"github.com/notargets/polymesh/partitions"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/spatial/r3"
)

// Version is the version of the tool
const Version = "0.3.0"

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "mesh",
			usage: `
              mesh is the path of a mesh file: YAML (.yaml, .yml) or a
              tetrahedral Gmsh, Gambit or SU2 mesh. If it is empty a block
              mesh is generated instead.`,
			shorthand:  "m",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "block",
			usage: `
              block gives the number of cells in x, y and z of the
              generated unit block mesh.`,
			defaultVal: []int{2, 2, 2},
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "log-level",
			usage: `
              log-level is the logging level: trace, debug, info, warn or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "cell",
			usage: `
              cell is the index of the cell to print.`,
			shorthand:  "c",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{cellCmd.Flags()},
		},
		{
			name: "partitions",
			usage: `
              partitions is the number of partitions to distribute the
              cells over.`,
			shorthand:  "n",
			defaultVal: 2,
			flagsets:   []*pflag.FlagSet{distributeCmd.Flags()},
		},
		{
			name: "strategy",
			usage: `
              strategy is the partitioning strategy: block, roundrobin or graph.`,
			defaultVal: "graph",
			flagsets:   []*pflag.FlagSet{distributeCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("POLYMESH")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 {
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case []int:
				set.IntSliceP(option.name, option.shorthand, v, option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	Root.AddCommand(versionCmd)
	Root.AddCommand(summaryCmd)
	Root.AddCommand(cellCmd)
	Root.AddCommand(distributeCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets up logging.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("celledges: problem reading configuration file: %v", err)
		}
	}

	level, err := logrus.ParseLevel(Cfg.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("celledges: %v", err)
	}
	logger := logrus.StandardLogger()
	logger.SetLevel(level)
	mesh.SetLogger(logger)
	meshobject.SetLogger(logger)
	celledge.SetLogger(logger)
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "celledges",
	Short: "Cell edge addressing of polyhedral meshes.",
	Long: `celledges computes the edge addressing of the cells of a polyhedral mesh:
which face-edges make up every edge of a cell and which faces the cell owns.

The mesh is read from the YAML, Gmsh, Gambit or SU2 file given with --mesh, or generated as a unit
block of --block cells. Configuration can be changed by using a configuration
file (and providing the path to the file using the --config flag), by using
command-line arguments, or by setting environment variables in the format
'POLYMESH_var' where 'var' is the name of the variable to be set.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("celledges v%s\n", Version)
	},
	DisableAutoGenTag: true,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize the mesh and its cell edge addressing",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadMesh()
		if err != nil {
			return err
		}
		l, err := celledge.New(m)
		if err != nil {
			return err
		}

		shapes := make(map[partitions.GeometryType]int)
		nEdges := 0
		for ci, c := range m.Cells() {
			shapes[partitions.Classify(c, m.Faces())]++
			d, err := l.Data(ci)
			if err != nil {
				return err
			}
			nEdges += d.NEdges()
		}

		box := m.Bounds()
		cmd.Printf("mesh %s (%s)\n", m.Name(), m.ID())
		cmd.Printf("  points:         %d\n", m.NPoints())
		cmd.Printf("  faces:          %d (%d internal)\n", m.NFaces(), m.NInternalFaces())
		cmd.Printf("  cells:          %d\n", m.NCells())
		cmd.Printf("  bounds:         %v - %v\n", box.Min, box.Max)
		for g := partitions.Tet; g <= partitions.Polyhedron; g++ {
			if n := shapes[g]; n > 0 {
				cmd.Printf("  %-15s %d\n", g.String()+":", n)
			}
		}
		cmd.Printf("  cell-edges:     %d\n", nEdges)
		return nil
	},
	DisableAutoGenTag: true,
}

var cellCmd = &cobra.Command{
	Use:   "cell",
	Short: "Print the edge addressing of one cell",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadMesh()
		if err != nil {
			return err
		}
		l, err := celledge.New(m)
		if err != nil {
			return err
		}
		celli := Cfg.GetInt("cell")
		a, err := l.At(celli)
		if err != nil {
			return err
		}

		c := m.Cells()[celli]
		cmd.Printf("cell %d: %d faces, %d edges\n", celli, len(c), len(a.CeiToCfiAndFei()))
		owns := a.COwns()
		for cfi, ceis := range a.CfiAndFeiToCei() {
			cmd.Printf("  cell-face %d (face %d, owned %t): edges %v\n",
				cfi, c[cfi], owns[cfi], ceis)
		}
		for cei, pair := range a.CeiToCfiAndFei() {
			e := a.Edge(cei)
			cmd.Printf("  cell-edge %d %d-%d: face-edges %d.%d %d.%d\n", cei,
				e.Start(), e.End(), pair[0].Cfi, pair[0].Fei, pair[1].Cfi, pair[1].Fei)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var distributeCmd = &cobra.Command{
	Use:   "distribute",
	Short: "Partition the cells and redistribute the mesh",
	Long: `distribute partitions the cells of the mesh, renumbers them so every
partition is contiguous and redistributes the mesh, rebuilding its cell edge
addressing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadMesh()
		if err != nil {
			return err
		}
		l, err := celledge.New(m)
		if err != nil {
			return err
		}

		strategy, err := partitions.ParseStrategy(Cfg.GetString("strategy"))
		if err != nil {
			return err
		}
		pb := &partitions.PartitionBuilder{
			Mesh:          partitions.NewMeshConnectivity(m),
			NumPartitions: Cfg.GetInt("partitions"),
			Strategy:      strategy,
		}
		layout, err := pb.BuildPartitions()
		if err != nil {
			return err
		}
		ifs, err := layout.Interfaces(m)
		if err != nil {
			return err
		}
		cutFaces := 0
		for _, f := range ifs {
			cutFaces += len(f.Faces)
		}

		if _, err := partitions.Redistribute(m, layout); err != nil {
			return err
		}

		stats := layout.PartitionStatistics()
		cmd.Printf("partitions:  %d (%v)\n", stats.NumPartitions, strategy)
		cmd.Printf("cells:       min %d, max %d, imbalance %.3f\n",
			stats.MinElements, stats.MaxElements, stats.Imbalance)
		cmd.Printf("interfaces:  %d, cut faces %d\n", len(ifs), cutFaces)
		cmd.Printf("addressing:  generation %d, registered %t\n", l.Generation(), celledge.Found(m))
		return nil
	},
	DisableAutoGenTag: true,
}

// loadMesh reads the configured mesh file or generates a block mesh
func loadMesh() (*mesh.PolyMesh, error) {
	if path := Cfg.GetString("mesh"); path != "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			return mesh.ReadFile(path)
		default:
			return mesh.ReadMeshFile(path)
		}
	}
	block := Cfg.GetIntSlice("block")
	if len(block) != 3 {
		return nil, fmt.Errorf("celledges: block needs 3 cell counts, got %v", block)
	}
	return mesh.NewBlockMesh("block", block[0], block[1], block[2],
		r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1})
}
