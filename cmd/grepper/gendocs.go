package grepper

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atifafzal786/grepper/internal/filetypes"
)

// gendocs regenerates the file types section in README.md between the
// markers <!-- BEGIN:FILE_TYPES --> and <!-- END:FILE_TYPES -->.
func init() {
	cmd := &cobra.Command{
		Use:   "gendocs",
		Short: "Regenerate the README file types table",
		RunE: func(_ *cobra.Command, _ []string) error {
			path := "README.md"
			b, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			start := []byte("<!-- BEGIN:FILE_TYPES -->")
			end := []byte("<!-- END:FILE_TYPES -->")
			i := bytes.Index(b, start)
			j := bytes.Index(b, end)
			if i < 0 || j < 0 || j <= i {
				return fmt.Errorf("markers not found in README.md")
			}

			var out strings.Builder
			out.WriteString("\n| Type | Globs |\n|---|---|\n")
			for _, name := range filetypes.Names() {
				globs, _ := filetypes.Lookup(name)
				out.WriteString("| " + name + " | `" + strings.Join(globs, "`, `") + "` |\n")
			}

			var nb bytes.Buffer
			nb.Write(b[:i])
			nb.Write(start)
			nb.WriteString(out.String())
			nb.Write(end)
			nb.Write(b[j+len(end):])
			return os.WriteFile(path, nb.Bytes(), 0644)
		},
	}
	rootCmd.AddCommand(cmd)
}
