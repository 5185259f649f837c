package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/vaultgrid/vaultgrid/blockstore"
	"github.com/vaultgrid/vaultgrid/inode"
)

func newShellCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	return c
}

// shellState is the interactive session's navigation stack: path holds
// the human-readable breadcrumb, cwd holds the matching chain of
// Stored handles to the directories on that path (empty means "at the
// root"). clipboard holds at most one Stored cut via "cut", paste'd
// with "paste".
type shellState struct {
	ctx       context.Context
	sess      *session
	path      []string
	cwd       []blockstore.Stored
	clipboard *blockstore.Stored
}

type shellCommand struct {
	name string
	help string
	run  func(s *shellState, args []string) error
}

var shellCommands []shellCommand

func init() {
	shellCommands = []shellCommand{
		{"help", "Print this help message.", cmdHelp},
		{"exit", "Exit the shell.", cmdExit},
		{"ls", "List the contents of the current directory.", cmdShellLs},
		{"mkdir", "Create a new directory: mkdir <name>", cmdMkdir},
		{"cd", "Change the current working directory: cd <name|..>", cmdCd},
		{"rm", "Remove a file or directory: rm <name>", cmdShellRm},
		{"cut", "Cut a file or directory into the clipboard: cut <name>", cmdCut},
		{"paste", "Paste the clipboard here: paste <name>", cmdPaste},
		{"up", "Upload a local file here: up <local-path>", cmdUp},
		{"down", "Download a file: down <name> <local-path>", cmdDown},
		{"stat", "Print metadata about a file or directory: stat <name|.>", cmdStat},
		{"lsbk", "List all configured buckets.", cmdLsbk},
		{"root", "Return to the root directory.", cmdRoot},
		{"cwd", "Print the current working directory.", cmdCwd},
	}
}

func runShell(ctx context.Context) error {
	sess, err := openSession(ctx)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render("vaultgrid shell") + dimStyle.Render(` — type "help" for a list of commands`))

	state := &shellState{ctx: ctx, sess: sess}
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(shellPrompt(state))
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		tokens := tokenizeShellLine(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		cmd, args := tokens[0], tokens[1:]

		found := false
		for _, c := range shellCommands {
			if c.name != cmd {
				continue
			}
			found = true
			if err := c.run(state, args); err != nil {
				if err == errShellExit {
					return nil
				}
				fmt.Println(errorStyle.Render("error: ") + err.Error())
			}
			break
		}
		if !found {
			fmt.Println(errorStyle.Render("unknown command: ") + cmd)
		}
	}
	return nil
}

func shellPrompt(s *shellState) string {
	clip := ""
	if s.clipboard != nil {
		clip = "[cut] "
	}
	path := strings.Join(s.path, "/")
	return promptStyle.Render(clip + "/" + path + "# ")
}

// tokenizeShellLine splits a line on unquoted whitespace, honoring
// single, double and backtick quotes and backslash escapes.
func tokenizeShellLine(line string) []string {
	var tokens []string
	var token strings.Builder
	inQuote := false
	escape := false

	flush := func() {
		if token.Len() > 0 {
			tokens = append(tokens, token.String())
			token.Reset()
		}
	}

	for _, r := range line {
		switch {
		case escape:
			token.WriteRune(r)
			escape = false
		case r == '\\':
			escape = true
		case r == '"' || r == '\'' || r == '`':
			inQuote = !inQuote
		case unicode.IsSpace(r) && !inQuote:
			flush()
		default:
			token.WriteRune(r)
		}
	}
	flush()
	return tokens
}

var errShellExit = fmt.Errorf("exit")

func cmdHelp(s *shellState, args []string) error {
	fmt.Println("Commands:")
	for _, c := range shellCommands {
		fmt.Printf("  %-8s %s\n", c.name, c.help)
	}
	return nil
}

func cmdExit(s *shellState, args []string) error {
	if s.clipboard != nil {
		return fmt.Errorf("clipboard is not empty, paste it somewhere first")
	}
	return errShellExit
}

func cmdRoot(s *shellState, args []string) error {
	s.path = nil
	s.cwd = nil
	return nil
}

func cmdCwd(s *shellState, args []string) error {
	fmt.Println("/" + strings.Join(s.path, "/"))
	return nil
}

// currentDirectory resolves the directory the shell is presently
// inside, following the cwd chain's last Stored handle.
func currentDirectory(ctx context.Context, s *shellState) (*inode.Directory, error) {
	if len(s.cwd) == 0 {
		return s.sess.root, nil
	}
	entry, err := blockstore.StoredGet[inode.InodeType](ctx, s.sess.reg, s.cwd[len(s.cwd)-1])
	if err != nil {
		return nil, err
	}
	if entry.Directory == nil {
		return nil, fmt.Errorf("not in a directory")
	}
	return entry.Directory, nil
}

// persistCurrentDirectory writes dir back wherever it lives: the root
// store if the shell is at "/", or the Stored entry at the top of the
// cwd chain otherwise.
func persistCurrentDirectory(ctx context.Context, s *shellState, dir *inode.Directory) error {
	if len(s.cwd) == 0 {
		return s.sess.save(ctx)
	}
	return blockstore.StoredPut(ctx, s.sess.reg, s.cwd[len(s.cwd)-1], inode.DirectoryInodeType(dir))
}

func cmdShellLs(s *shellState, args []string) error {
	ctx := s.ctx
	dir, err := currentDirectory(ctx, s)
	if err != nil {
		return err
	}
	if len(s.cwd) > 0 {
		fmt.Println("..")
	}
	for _, entry := range dir.ListEntries() {
		child, err := blockstore.StoredGet[inode.InodeType](ctx, s.sess.reg, entry.Stored)
		if err != nil {
			fmt.Printf("  %s %s\n", errorStyle.Render("?"), entry.Name)
			continue
		}
		printEntry(entry.Name, child)
	}
	return nil
}

func cmdMkdir(s *shellState, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: mkdir <name>")
	}
	ctx := s.ctx
	dir, err := currentDirectory(ctx, s)
	if err != nil {
		return err
	}
	newDir := inode.NewDirectory(time.Now())
	if _, err := dir.Add(ctx, s.sess.reg, args[0], inode.DirectoryInodeType(newDir)); err != nil {
		return err
	}
	return persistCurrentDirectory(ctx, s, dir)
}

func cmdCd(s *shellState, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: cd <name|..>")
	}
	if args[0] == ".." {
		if len(s.path) > 0 {
			s.path = s.path[:len(s.path)-1]
		}
		if len(s.cwd) > 0 {
			s.cwd = s.cwd[:len(s.cwd)-1]
		}
		return nil
	}

	ctx := s.ctx
	dir, err := currentDirectory(ctx, s)
	if err != nil {
		return err
	}
	stored, err := dir.Get(args[0])
	if err != nil {
		return fmt.Errorf("no such directory: %s", args[0])
	}
	entry, err := blockstore.StoredGet[inode.InodeType](ctx, s.sess.reg, stored)
	if err != nil {
		return err
	}
	if entry.Directory == nil {
		return fmt.Errorf("%s is not a directory", args[0])
	}
	s.path = append(s.path, args[0])
	s.cwd = append(s.cwd, stored)
	return nil
}

func cmdShellRm(s *shellState, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: rm <name>")
	}
	ctx := s.ctx
	dir, err := currentDirectory(ctx, s)
	if err != nil {
		return err
	}
	if err := dir.Remove(ctx, s.sess.reg, args[0]); err != nil {
		return err
	}
	return persistCurrentDirectory(ctx, s, dir)
}

func cmdCut(s *shellState, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: cut <name>")
	}
	if s.clipboard != nil {
		return fmt.Errorf("clipboard is not empty")
	}
	ctx := s.ctx
	dir, err := currentDirectory(ctx, s)
	if err != nil {
		return err
	}
	stored, err := dir.Unlink(args[0])
	if err != nil {
		return err
	}
	if err := persistCurrentDirectory(ctx, s, dir); err != nil {
		return err
	}
	s.clipboard = &stored
	return nil
}

func cmdPaste(s *shellState, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: paste <name>")
	}
	if s.clipboard == nil {
		return fmt.Errorf("clipboard is empty")
	}
	ctx := s.ctx
	dir, err := currentDirectory(ctx, s)
	if err != nil {
		return err
	}
	if err := dir.Put(args[0], *s.clipboard); err != nil {
		return err
	}
	if err := persistCurrentDirectory(ctx, s, dir); err != nil {
		return err
	}
	s.clipboard = nil
	return nil
}

func cmdUp(s *shellState, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: up <local-path>")
	}
	ctx := s.ctx
	dir, err := currentDirectory(ctx, s)
	if err != nil {
		return err
	}

	localPath := os.ExpandEnv(args[0])
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}
	name := localPath
	if idx := strings.LastIndexByte(localPath, '/'); idx >= 0 {
		name = localPath[idx+1:]
	}

	file, err := inode.CreateFile(ctx, s.sess.reg, data)
	if err != nil {
		return err
	}
	if _, err := dir.Add(ctx, s.sess.reg, name, inode.FileInodeType(file)); err != nil {
		return err
	}
	if err := persistCurrentDirectory(ctx, s, dir); err != nil {
		return err
	}
	fmt.Printf("uploaded %d bytes to %q\n", len(data), name)
	return nil
}

func cmdDown(s *shellState, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: down <name> <local-path>")
	}
	ctx := s.ctx
	dir, err := currentDirectory(ctx, s)
	if err != nil {
		return err
	}
	stored, err := dir.Get(args[0])
	if err != nil {
		return err
	}
	entry, err := blockstore.StoredGet[inode.InodeType](ctx, s.sess.reg, stored)
	if err != nil {
		return err
	}
	if entry.File == nil {
		return fmt.Errorf("%s is not a file", args[0])
	}

	fmt.Printf("downloading %s...\n", formatBytes(entry.File.Metadata().Size))
	out, err := os.Create(args[1])
	if err != nil {
		return err
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	for chunk, err := range entry.File.Get(ctx, s.sess.reg) {
		if err != nil {
			return err
		}
		if _, err := w.Write(chunk); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("downloaded to %s\n", args[1])
	return nil
}

func cmdStat(s *shellState, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: stat <name|.>")
	}
	ctx := s.ctx
	dir, err := currentDirectory(ctx, s)
	if err != nil {
		return err
	}

	if args[0] == "." {
		meta := dir.Metadata()
		fmt.Println("Type: Directory")
		printStat(meta, true)
		return nil
	}

	stored, err := dir.Get(args[0])
	if err != nil {
		return err
	}
	entry, err := blockstore.StoredGet[inode.InodeType](ctx, s.sess.reg, stored)
	if err != nil {
		return err
	}
	switch {
	case entry.Directory != nil:
		fmt.Println("Type: Directory")
		printStat(entry.Directory.Metadata(), true)
	case entry.File != nil:
		fmt.Println("Type: File")
		printStat(entry.File.Metadata(), false)
	}
	return nil
}

func printStat(meta inode.Metadata, isDir bool) {
	if isDir {
		fmt.Printf("Size: %d entries\n", meta.Size)
	} else {
		fmt.Printf("Size: %s\n", formatBytes(meta.Size))
	}
	fmt.Printf("Created: %s\n", meta.Created.Format(time.RFC3339))
	fmt.Printf("Modified: %s\n", meta.Modified.Format(time.RFC3339))
}

func cmdLsbk(s *shellState, args []string) error {
	fmt.Printf("  %-20s %s\n", "Name", "Max block size")
	for _, name := range s.sess.reg.ListBuckets() {
		bucket := s.sess.reg.GetBucket(name)
		fmt.Printf("  %-20s %s\n", name, formatBytes(int64(bucket.MaxSize())))
	}
	return nil
}
