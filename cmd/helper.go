// nolint:errcheck
package cmd

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const projectURL = "https://github.com/Hanaasagi/builderr"

// Command groups of the root command
const (
	GroupInspect = "inspect"
	GroupSetup   = "setup"
)

// keysAnnotation holds the encoded key bindings of an interactive command
const keysAnnotation = "builderr.keys"

var (
	titleStyle       = color.New(color.Bold, color.FgHiWhite)
	commandStyle     = color.New(color.FgHiGreen)
	descriptionStyle = color.New(color.FgHiCyan)
	aliasStyle       = color.New(color.FgHiGreen)
	exampleStyle     = color.New(color.FgHiCyan)
	flagStyle        = color.New(color.Bold, color.FgHiCyan)
	keyStyle         = color.New(color.Bold, color.FgHiYellow)
	tipStyle         = color.New(color.FgHiYellow)
	groupTitleStyle  = color.New(color.Bold, color.FgHiMagenta)
	linkStyle        = color.New(color.FgYellow)
)

// Groups returns the command groups, in the order they are listed
func Groups() []*cobra.Group {
	return []*cobra.Group{
		{ID: GroupInspect, Title: "Inspect Build Output:"},
		{ID: GroupSetup, Title: "Configuration:"},
	}
}

// KeyBinding documents a key of an interactive command
type KeyBinding struct {
	Keys        string
	Description string
}

// AnnotateKeys attaches bindings to c so its help lists them
func AnnotateKeys(c *cobra.Command, bindings []KeyBinding) {
	lines := make([]string, len(bindings))
	for i, b := range bindings {
		lines[i] = b.Keys + "\t" + b.Description
	}
	if c.Annotations == nil {
		c.Annotations = make(map[string]string)
	}
	c.Annotations[keysAnnotation] = strings.Join(lines, "\n")
}

func keyBindings(c *cobra.Command) []KeyBinding {
	raw := c.Annotations[keysAnnotation]
	if raw == "" {
		return nil
	}
	var bindings []KeyBinding
	for _, line := range strings.Split(raw, "\n") {
		keys, description, _ := strings.Cut(line, "\t")
		bindings = append(bindings, KeyBinding{Keys: keys, Description: description})
	}
	return bindings
}

// Install registers the groups and the colored help and usage on root.
// Subcommands inherit both.
func Install(root *cobra.Command) {
	root.AddGroup(Groups()...)
	root.SetUsageFunc(func(c *cobra.Command) error {
		return ColorUsageFunc(c.OutOrStderr(), c)
	})
	root.SetHelpFunc(ColorHelpFunc)
}

func rpad(s string, padding int) string {
	return fmt.Sprintf("%-*s", padding, s)
}

func trimRightSpace(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}

func listed(c *cobra.Command) bool {
	return c.IsAvailableCommand() || c.Name() == "help"
}

// writeCommands prints the listed commands accepted by keep under title.
// Nothing is printed when no command is left.
func writeCommands(buf *bytes.Buffer, title string, style *color.Color, cmds []*cobra.Command, keep func(*cobra.Command) bool) {
	var picked []*cobra.Command
	for _, c := range cmds {
		if listed(c) && keep(c) {
			picked = append(picked, c)
		}
	}
	if len(picked) == 0 {
		return
	}

	fmt.Fprint(buf, "\n\n")
	style.Fprint(buf, title)
	for _, c := range picked {
		fmt.Fprint(buf, "\n  ")
		commandStyle.Fprint(buf, rpad(c.Name(), c.NamePadding()))
		fmt.Fprint(buf, " ")
		descriptionStyle.Fprint(buf, c.Short)
	}
}

var reFlag = regexp.MustCompile(`^( {2,})(?:(-[a-zA-Z]), )?(--[a-zA-Z0-9-]+)(.*)$`)

// colorFlags highlights the short form of a flag, or the long form when it
// has none
func colorFlags(raw string) []byte {
	var out bytes.Buffer
	for _, line := range strings.Split(raw, "\n") {
		m := reFlag.FindStringSubmatch(line)
		if m == nil {
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}

		indent, shortFlag, longFlag, rest := m[1], m[2], m[3], m[4]
		out.WriteString(indent)
		if shortFlag != "" {
			flagStyle.Fprint(&out, shortFlag)
			out.WriteString(", ")
			out.WriteString(longFlag)
		} else {
			flagStyle.Fprint(&out, longFlag)
		}
		out.WriteString(rest)
		out.WriteByte('\n')
	}
	return bytes.TrimRight(out.Bytes(), "\n")
}

func writeKeys(buf *bytes.Buffer, bindings []KeyBinding) {
	width := 0
	for _, b := range bindings {
		width = max(width, len(b.Keys))
	}

	fmt.Fprint(buf, "\n\n")
	titleStyle.Fprint(buf, "Keys:")
	for _, b := range bindings {
		fmt.Fprint(buf, "\n  ")
		keyStyle.Fprint(buf, rpad(b.Keys, width))
		fmt.Fprint(buf, "   ")
		fmt.Fprint(buf, b.Description)
	}
}

// ColorUsageFunc writes the usage of cmd with grouped subcommands, its flags
// and the keys of interactive commands
func ColorUsageFunc(w io.Writer, cmd *cobra.Command) error {
	buf := &bytes.Buffer{}

	titleStyle.Fprint(buf, "Usage:")
	if cmd.Runnable() {
		fmt.Fprint(buf, "\n  ")
		commandStyle.Fprint(buf, cmd.UseLine())
	}
	if cmd.HasAvailableSubCommands() {
		fmt.Fprint(buf, "\n  ")
		commandStyle.Fprintf(buf, "%s [command]", cmd.CommandPath())
	}

	if len(cmd.Aliases) > 0 {
		fmt.Fprint(buf, "\n\n")
		titleStyle.Fprint(buf, "Aliases:")
		fmt.Fprint(buf, "\n  ")
		aliasStyle.Fprint(buf, strings.Join(cmd.Aliases, ", "))
	}

	if cmd.HasExample() {
		fmt.Fprint(buf, "\n\n")
		titleStyle.Fprint(buf, "Examples:")
		fmt.Fprint(buf, "\n")
		exampleStyle.Fprint(buf, cmd.Example)
	}

	if cmd.HasAvailableSubCommands() {
		cmds := cmd.Commands()
		if len(cmd.Groups()) == 0 {
			writeCommands(buf, "Available Commands:", titleStyle, cmds, func(*cobra.Command) bool { return true })
		} else {
			for _, group := range cmd.Groups() {
				writeCommands(buf, group.Title, groupTitleStyle, cmds, func(c *cobra.Command) bool {
					return c.GroupID == group.ID
				})
			}
			writeCommands(buf, "Additional Commands:", titleStyle, cmds, func(c *cobra.Command) bool {
				return c.GroupID == ""
			})
		}
	}

	if cmd.HasAvailableLocalFlags() {
		fmt.Fprint(buf, "\n\n")
		titleStyle.Fprint(buf, "Flags:")
		fmt.Fprint(buf, "\n")
		buf.Write(colorFlags(trimRightSpace(cmd.LocalFlags().FlagUsages())))
	}

	if cmd.HasAvailableInheritedFlags() {
		fmt.Fprint(buf, "\n\n")
		titleStyle.Fprint(buf, "Global Flags:")
		fmt.Fprint(buf, "\n")
		buf.Write(colorFlags(trimRightSpace(cmd.InheritedFlags().FlagUsages())))
	}

	if bindings := keyBindings(cmd); len(bindings) > 0 {
		writeKeys(buf, bindings)
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Fprint(buf, "\n\n")
		tipStyle.Fprintf(buf, "Use \"%s [command] --help\" for more information about a command.", cmd.CommandPath())
	}

	fmt.Fprintln(buf)

	_, err := w.Write(buf.Bytes())
	return err
}

// ColorHelpFunc prints the description of c followed by its usage
func ColorHelpFunc(c *cobra.Command, _ []string) {
	buf := &bytes.Buffer{}

	text := c.Long
	if text == "" {
		text = c.Short
	}
	if text = trimRightSpace(text); text != "" {
		fmt.Fprintf(buf, "%s\n\n", text)
	}
	if c.Runnable() || c.HasSubCommands() {
		ColorUsageFunc(buf, c)
		fmt.Fprintln(buf)
	}
	titleStyle.Fprint(buf, "Project:")
	fmt.Fprint(buf, " ")
	linkStyle.Fprintln(buf, projectURL)

	c.OutOrStdout().Write(buf.Bytes())
}
