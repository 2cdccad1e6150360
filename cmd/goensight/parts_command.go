package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"goensight/internal/ensobj"
	"goensight/internal/session"
)

type partInfo struct {
	ID          int64  `json:"id"`
	Class       string `json:"class"`
	Description string `json:"description"`
	Visible     bool   `json:"visible"`
}

func newPartsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "parts",
		Short: "List the parts in the current case",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(runCtx context.Context, sess *session.Session) error {
				parts, err := fetchParts(runCtx, sess)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, parts)
				}
				if len(parts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No parts are loaded")
					return nil
				}
				rows := make([][]string, 0, len(parts))
				for _, part := range parts {
					rows = append(rows, []string{
						strconv.FormatInt(part.ID, 10),
						part.Class,
						part.Description,
						yesNo(part.Visible),
					})
				}
				out := renderTable(
					[]string{"ID", "CLASS", "DESCRIPTION", "VISIBLE"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the part list as JSON")
	return cmd
}

func fetchParts(ctx context.Context, sess *session.Session) ([]partInfo, error) {
	value, err := sess.Cmd(ctx, "ensight.objs.core.PARTS")
	if err != nil {
		return nil, fmt.Errorf("query parts: %w", err)
	}
	list, ok := value.(ensobj.ObjList)
	if !ok {
		return nil, fmt.Errorf("query parts: unexpected reply %T", value)
	}
	handles := list.Handles()
	if len(handles) == 0 {
		return nil, nil
	}

	attrs, err := sess.Cmd(ctx, "[(p.DESCRIPTION, p.VISIBLE) for p in ensight.objs.core.PARTS]")
	if err != nil {
		return nil, fmt.Errorf("query part attributes: %w", err)
	}
	attrList, _ := attrs.(ensobj.ObjList)

	parts := make([]partInfo, 0, len(handles))
	for i, handle := range handles {
		info := partInfo{ID: handle.ID, Class: handle.Class}
		if i < len(attrList) {
			if pair, ok := attrList[i].([]any); ok && len(pair) == 2 {
				if name, ok := pair[0].(string); ok {
					info.Description = name
				}
				if visible, ok := pair[1].(bool); ok {
					info.Visible = visible
				}
			}
		}
		parts = append(parts, info)
	}
	return parts, nil
}
