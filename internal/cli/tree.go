package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/narratives/internal/graph"
	"github.com/ibeckermayer/narratives/internal/pipeline"
	"github.com/ibeckermayer/narratives/internal/types"
)

func newTreeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tree <posts.json> <root-id>",
		Short: "Print the reply tree under a post",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			posts, err := pipeline.LoadPostsFile(args[0])
			if err != nil {
				return err
			}
			idx, err := graph.NewIndex(posts)
			if err != nil {
				return err
			}
			g := graph.Build(posts)
			rootID := types.PostID(args[1])
			if !g.Has(rootID) {
				return fmt.Errorf("post %s is not in %s", rootID, args[0])
			}

			out := cmd.OutOrStdout()
			depth := map[types.PostID]int{rootID: 0}
			for _, id := range g.TraversalOrder(rootID) {
				for _, child := range g.Children(id) {
					depth[child] = depth[id] + 1
				}
				text := ""
				if p, ok := idx.Get(id); ok {
					text = snippet(p.Text, 80)
				}
				fmt.Fprintf(out, "%s%s  %s\n", strings.Repeat("  ", depth[id]), id, text)
			}

			s := g.Stats(rootID)
			fmt.Fprintf(out, "\ndepth=%d breadth=%d nodes=%d\n", s.Depth, s.Breadth, s.NumNodes)
			return nil
		},
	}
}
