package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/visio2svg/pkg/cache"
	"github.com/matzehuels/visio2svg/pkg/visio"
)

// infoCommand creates the info command.
func (c *CLI) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info [file]",
		Short: "Show the format and page names of a Visio document",
		Long: `Show the format and page names of a Visio document.

Page and stencil names are read from VSDX/VSSX packages directly. Binary
documents only report their format; run 'convert' to see their pages.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInfo(args[0])
		},
	}
}

func (c *CLI) runInfo(input string) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	format := visio.Sniff(data)
	printKeyValue("File", input)
	printKeyValue("Format", format.String())
	printKeyValue("Size", fmt.Sprintf("%d bytes", len(data)))
	printKeyValue("Hash", cache.Hash(data)[:16])

	switch format {
	case visio.FormatUnknown:
		printWarning("Not a Visio document")
		return nil
	case visio.FormatBinary:
		printNextStep("List its pages", "visio2svg convert "+input)
		return nil
	}

	pages, err := visio.PackageNames(data, false)
	if err != nil {
		c.Logger.Debug("no page names", "err", err)
	}
	masters, err := visio.PackageNames(data, true)
	if err != nil {
		c.Logger.Debug("no master names", "err", err)
	}

	printNewline()
	fmt.Println(namesTable(pages, masters))
	return nil
}

// namesTable lays out page and master names side by side.
func namesTable(pages, masters []string) string {
	rows := [][]string{}
	for i := range max(len(pages), len(masters)) {
		row := []string{strconv.Itoa(i + 1), "", ""}
		if i < len(pages) {
			row[1] = pages[i]
		}
		if i < len(masters) {
			row[2] = masters[i]
		}
		rows = append(rows, row)
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Page", "Stencil").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return StyleDim
			}
			return StyleValue
		}).
		Render()
}
