package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/wippyai/ctf"
	"github.com/wippyai/ctf/archive"
	"github.com/wippyai/ctf/container"
	"github.com/wippyai/ctf/format"
	"github.com/wippyai/ctf/render"
)

func main() {
	var (
		file        = flag.String("file", "", "Path to a dictionary or archive file")
		member      = flag.String("member", "", "Archive member to open (default: first member)")
		parentFile  = flag.String("parent", "", "Dictionary file to attach as parent")
		typeName    = flag.String("type", "", "Describe one type by declaration, e.g. 'struct proc *'")
		list        = flag.Bool("list", false, "List every type")
		vars        = flag.Bool("vars", false, "List variable bindings")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Usage: ctfdump -file <types.ctf> [-list] [-vars] [-type decl]")
		fmt.Fprintln(os.Stderr, "       ctfdump -file <types.ctfa> -member <name> [-parent file]")
		fmt.Fprintln(os.Stderr, "       ctfdump -file <types.ctf> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*file, *member, *parentFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*file, *member, *parentFile, *typeName, *list, *vars); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openTarget opens file as either an archive member or a plain
// dictionary, attaching an optional parent dictionary.
func openTarget(file, member, parentFile string) (*container.Container, func(), error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, nil, fmt.Errorf("read file: %w", err)
	}

	var c *container.Container
	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if isArchive(data) {
		a, err := archive.OpenBytes(data)
		if err != nil {
			return nil, nil, fmt.Errorf("open archive: %w", err)
		}
		closers = append(closers, func() { a.Close() })
		if member == "" {
			names := a.Names()
			if len(names) == 0 {
				closeAll()
				return nil, nil, fmt.Errorf("archive has no members")
			}
			member = names[0]
		}
		c, err = a.Get(member)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open member: %w", err)
		}
	} else {
		c, err = container.Open(ctf.Section{Name: file, Data: data})
		if err != nil {
			return nil, nil, fmt.Errorf("open dictionary: %w", err)
		}
	}
	closers = append(closers, func() { c.Close() })

	if parentFile != "" && c.Parent() == nil {
		pdata, err := os.ReadFile(parentFile)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("read parent: %w", err)
		}
		p, err := container.Open(ctf.Section{Name: parentFile, Data: pdata})
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open parent: %w", err)
		}
		err = c.Import(p)
		p.Close()
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("import parent: %w", err)
		}
	}
	return c, closeAll, nil
}

func isArchive(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	magic := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
	return magic == format.ArchiveMagic
}

func run(file, member, parentFile, typeName string, list, vars bool) error {
	c, closeAll, err := openTarget(file, member, parentFile)
	if err != nil {
		return err
	}
	defer closeAll()

	fmt.Printf("Dictionary: %s\n", file)
	fmt.Printf("Model: %s\n", c.Model().Name)
	fmt.Printf("Types: %d\n", c.TypeMax())
	if c.ParMax() != 0 {
		label, name := c.ParentNames()
		fmt.Printf("Parent boundary: %d (name %q, label %q)\n", c.ParMax(), name, label)
	}

	if typeName != "" {
		id, err := c.LookupByName(typeName)
		if err != nil {
			return fmt.Errorf("lookup %q: %w", typeName, err)
		}
		return describeType(c, id)
	}

	if list {
		fmt.Printf("\nTypes:\n")
		var walkErr error
		err := c.EachType(func(id ctf.TypeID, kind ctf.Kind) bool {
			name, err := render.TypeName(c, id)
			if err != nil {
				name, walkErr = fmt.Sprintf("<%v>", err), nil
			}
			size, _ := c.SizeOf(id)
			fmt.Printf("  %6d  %-9s %-40s %d bytes\n", id, kind, name, size)
			return true
		})
		if err != nil {
			return err
		}
		if walkErr != nil {
			return walkErr
		}
	}

	if vars {
		fmt.Printf("\nVariables:\n")
		return c.EachVariable(func(v ctf.VarInfo) bool {
			decl, err := render.Declaration(c, v.Type, v.Name)
			if err != nil {
				decl = fmt.Sprintf("%s <%v>", v.Name, err)
			}
			fmt.Printf("  %s\n", decl)
			return true
		})
	}
	return nil
}

func describeType(c *container.Container, id ctf.TypeID) error {
	name, err := render.TypeName(c, id)
	if err != nil {
		return err
	}
	kind, err := c.Kind(id)
	if err != nil {
		return err
	}
	size, _ := c.SizeOf(id)
	align, _ := c.AlignOf(id)

	fmt.Printf("\nType %d: %s\n", id, name)
	fmt.Printf("Kind: %s\n", kind)
	fmt.Printf("Size: %d bytes, align %d\n", size, align)

	switch kind {
	case ctf.KindInteger, ctf.KindFloat, ctf.KindSlice:
		enc, err := c.TypeEncoding(id)
		if err != nil {
			return err
		}
		fmt.Printf("Encoding: format %#x, offset %d, bits %d\n", enc.Format, enc.Offset, enc.Bits)
	case ctf.KindStruct, ctf.KindUnion:
		members, err := c.Members(id)
		if err != nil {
			return err
		}
		fmt.Printf("Members:\n")
		for _, m := range members {
			decl, err := render.Declaration(c, m.Type, m.Name)
			if err != nil {
				decl = fmt.Sprintf("%s <%v>", m.Name, err)
			}
			fmt.Printf("  %-40s offset %d bits\n", decl, m.Offset)
		}
	case ctf.KindEnum:
		enums, err := c.Enumerators(id)
		if err != nil {
			return err
		}
		fmt.Printf("Enumerators:\n")
		for _, e := range enums {
			fmt.Printf("  %s = %d\n", e.Name, e.Value)
		}
	case ctf.KindFunction:
		ret, args, err := c.FunctionInfo(id)
		if err != nil {
			return err
		}
		retName := "void"
		if ret != ctf.NoType {
			if retName, err = render.TypeName(c, ret); err != nil {
				return err
			}
		}
		fmt.Printf("Returns: %s\n", retName)
		fmt.Printf("Arguments:\n")
		for i, a := range args {
			if a == ctf.NoType {
				fmt.Printf("  %d: ...\n", i)
				continue
			}
			aname, err := render.TypeName(c, a)
			if err != nil {
				return err
			}
			fmt.Printf("  %d: %s\n", i, aname)
		}
	}
	return nil
}
