package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/traceport/tui/theme"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// ChoicesAnnotation is the flag annotation listing the accepted values of a
// flag. Help lists them under the flag and shell completion offers them.
const ChoicesAnnotation = "traceport_choices"

const (
	maxWidth = 72
	minWidth = 40
)

// SetChoices records the accepted values of the named flag.
func SetChoices(fs *pflag.FlagSet, name string, choices ...string) error {
	return fs.SetAnnotation(name, ChoicesAnnotation, choices)
}

func flagChoices(f *pflag.Flag) []string {
	return f.Annotations[ChoicesAnnotation]
}

// helpWidth is the terminal width of w, clamped to [minWidth, maxWidth].
// Writers that are not terminals get maxWidth.
func helpWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return maxWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width < minWidth || width > maxWidth {
		return maxWidth
	}
	return width
}

// wrapText wraps text to width, keeping existing line breaks.
func wrapText(text string, width int) string {
	if width <= 0 {
		width = maxWidth
	}

	var result []string
	for _, paragraph := range strings.Split(text, "\n") {
		if len(paragraph) <= width {
			result = append(result, paragraph)
			continue
		}
		var line string
		for _, word := range strings.Fields(paragraph) {
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) <= width:
				line += " " + word
			default:
				result = append(result, line)
				line = word
			}
		}
		if line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}

// ApplyStyledHelpRecursive installs styled help on cmd and every subcommand,
// and registers completion for flags carrying ChoicesAnnotation. Call it once
// the command tree is complete.
func ApplyStyledHelpRecursive(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelpFunc)
	cmd.SetUsageFunc(func(*cobra.Command) error { return nil })
	cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
		choices := flagChoices(f)
		if len(choices) == 0 {
			return
		}
		_ = cmd.RegisterFlagCompletionFunc(f.Name, cobra.FixedCompletions(choices, cobra.ShellCompDirectiveNoFileComp))
	})
	for _, sub := range cmd.Commands() {
		ApplyStyledHelpRecursive(sub)
	}
}

// PrintError prints a styled error with a help hint to stderr.
func PrintError(cmd *cobra.Command, err error) {
	t := theme.Default()
	red := lipgloss.NewStyle().Bold(true).Foreground(t.Colors.Red)
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", red.Render("Error:"), err.Error())
	fmt.Fprintln(cmd.ErrOrStderr(), t.Muted.Render(fmt.Sprintf("Run '%s --help' for usage.", cmd.CommandPath())))
}

// helpStyles are the styles of one help rendering.
type helpStyles struct {
	t       *theme.Theme
	title   lipgloss.Style
	section lipgloss.Style
	command lipgloss.Style
	flag    lipgloss.Style
	sub     lipgloss.Style
}

func newHelpStyles() helpStyles {
	t := theme.Default()
	return helpStyles{
		t:       t,
		title:   lipgloss.NewStyle().Bold(true).Foreground(t.Colors.Yellow),
		section: lipgloss.NewStyle().Italic(true).Foreground(t.Colors.Yellow),
		command: lipgloss.NewStyle().Bold(true).Foreground(t.Colors.Blue),
		flag:    lipgloss.NewStyle().Foreground(t.Colors.Violet),
		sub:     lipgloss.NewStyle().Foreground(t.Colors.Cyan),
	}
}

func styledHelpFunc(cmd *cobra.Command, _ []string) {
	w := cmd.OutOrStdout()
	s := newHelpStyles()
	width := helpWidth(w) - 2

	fmt.Fprintln(w, " "+s.title.Render(strings.ToUpper(cmd.CommandPath())))
	if cmd.Short != "" {
		for _, line := range strings.Split(wrapText(cmd.Short, width), "\n") {
			fmt.Fprintln(w, " "+lipgloss.NewStyle().Italic(true).Render(line))
		}
	}
	if cmd.Long != "" && cmd.Long != cmd.Short {
		fmt.Fprintln(w)
		for _, line := range strings.Split(wrapText(cmd.Long, width), "\n") {
			fmt.Fprintln(w, " "+line)
		}
	}

	if cmd.Runnable() || cmd.HasAvailableSubCommands() {
		fmt.Fprintln(w, "\n "+s.section.Render("USAGE"))
		if cmd.Runnable() {
			fmt.Fprintln(w, " "+cmd.UseLine())
		}
		if cmd.HasAvailableSubCommands() {
			fmt.Fprintf(w, " %s [command]\n", cmd.CommandPath())
		}
	}

	if cmd.HasAvailableSubCommands() {
		writeCommands(w, s, cmd)
	}
	writeFlags(w, s, "FLAGS", cmd.LocalFlags())
	if cmd.HasParent() {
		writeInherited(w, s, cmd.InheritedFlags())
	}

	if cmd.Example != "" {
		fmt.Fprintln(w, "\n "+s.section.Render("EXAMPLES"))
		root := cmd.Root().Name()
		for _, line := range strings.Split(cmd.Example, "\n") {
			writeExampleLine(w, s, strings.TrimSpace(line), root)
		}
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "\n Use \"%s [command] --help\" for more information.\n", cmd.CommandPath())
	}
}

func writeCommands(w io.Writer, s helpStyles, cmd *cobra.Command) {
	width := 0
	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() && len(sub.Name()) > width {
			width = len(sub.Name())
		}
	}
	fmt.Fprintln(w, "\n "+s.section.Render("COMMANDS"))
	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() {
			pad := strings.Repeat(" ", width-len(sub.Name()))
			fmt.Fprintf(w, " %s%s  %s\n", s.command.Render(sub.Name()), pad, sub.Short)
		}
	}
}

func visible(fs *pflag.FlagSet) []*pflag.Flag {
	var flags []*pflag.Flag
	fs.VisitAll(func(f *pflag.Flag) {
		if !f.Hidden {
			flags = append(flags, f)
		}
	})
	return flags
}

func writeFlags(w io.Writer, s helpStyles, title string, fs *pflag.FlagSet) {
	flags := visible(fs)
	if len(flags) == 0 {
		return
	}

	width := 0
	for _, f := range flags {
		if n := len(flagName(f)); n > width {
			width = n
		}
	}

	fmt.Fprintln(w, "\n "+s.section.Render(title))
	for _, f := range flags {
		name := flagName(f)
		usage := f.Usage
		if choices := flagChoices(f); len(choices) > 0 {
			usage += " " + s.t.Muted.Render("["+strings.Join(choices, "|")+"]")
		}
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "[]" {
			usage += s.t.Muted.Render(fmt.Sprintf(" (default: %s)", f.DefValue))
		}
		fmt.Fprintf(w, " %s%s  %s\n", s.flag.Render(name), strings.Repeat(" ", width-len(name)), usage)
	}
}

// writeInherited lists the root's persistent flags on one muted line.
func writeInherited(w io.Writer, s helpStyles, fs *pflag.FlagSet) {
	var names []string
	for _, f := range visible(fs) {
		names = append(names, "--"+f.Name)
	}
	if len(names) > 0 {
		fmt.Fprintln(w, "\n "+s.t.Muted.Render("Global flags: "+strings.Join(names, ", ")))
	}
}

func flagName(f *pflag.Flag) string {
	if f.Shorthand != "" {
		return fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	}
	return "    --" + f.Name
}

// writeExampleLine mutes comments and colors the program, subcommand and
// flags of an example invocation.
func writeExampleLine(w io.Writer, s helpStyles, line, root string) {
	switch {
	case line == "":
		fmt.Fprintln(w)
		return
	case strings.HasPrefix(line, "#"):
		fmt.Fprintln(w, " "+s.t.Muted.Render(line))
		return
	}

	parts := strings.Fields(line)
	for i, part := range parts {
		switch {
		case i == 0 && part == root:
			parts[i] = s.command.Render(part)
		case i == 1 && !strings.HasPrefix(part, "-"):
			parts[i] = s.sub.Render(part)
		case strings.HasPrefix(part, "-"):
			parts[i] = s.flag.Render(part)
		}
	}
	fmt.Fprintln(w, "   "+strings.Join(parts, " "))
}
