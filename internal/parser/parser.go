package parser

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/sokinpui/listdiff/model"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.TaskList))

// Parse uses a markdown AST to collect every list item of source, nested
// ones included, in document order. Anything that is not a list item is
// ignored.
func Parse(source []byte) ([]model.Task, error) {
	var tasks []model.Task
	root := markdown.Parser().Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		item, ok := node.(*ast.ListItem)
		if !ok {
			return ast.WalkContinue, nil
		}

		var task model.Task
		if first := item.FirstChild(); first != nil {
			task = readTask(first, source)
		}
		tasks = append(tasks, task)

		// Nested lists live further down the item.
		return ast.WalkContinue, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}

	return tasks, nil
}

// Locate returns the line on which the list items of source begin. ok is
// false unless every item sits on a line of its own and no other line comes
// between two items. Without items the list begins after the last line.
func Locate(source []byte) (line int, ok bool) {
	root := markdown.Parser().Parse(text.NewReader(source))

	var lines []int
	ok = true
	_ = ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		item, isItem := node.(*ast.ListItem)
		if !entering || !isItem {
			return ast.WalkContinue, nil
		}
		n, single := itemLine(item, source)
		if !single {
			ok = false
			return ast.WalkStop, nil
		}
		lines = append(lines, n)
		return ast.WalkContinue, nil
	})
	if !ok {
		return 0, false
	}

	if len(lines) == 0 {
		n := bytes.Count(source, []byte("\n"))
		if len(source) > 0 && source[len(source)-1] != '\n' {
			n++
		}
		return n, true
	}
	for i, n := range lines {
		if n != lines[0]+i {
			return 0, false
		}
	}
	return lines[0], true
}

// itemLine returns the line of a list item whose own content fits on one
// line. Nested lists may follow it.
func itemLine(item *ast.ListItem, source []byte) (int, bool) {
	first := item.FirstChild()
	if first == nil || first.Lines().Len() != 1 {
		return 0, false
	}
	for c := first.NextSibling(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*ast.List); !ok {
			return 0, false
		}
	}
	start := first.Lines().At(0).Start
	return bytes.Count(source[:start], []byte("\n")), true
}

// readTask flattens the inline content of the first block of a list item.
func readTask(block ast.Node, source []byte) model.Task {
	var task model.Task
	var title bytes.Buffer

	_ = ast.Walk(block, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *extast.TaskCheckBox:
			task.Checkbox = true
			task.Done = n.IsChecked
		case *ast.Text:
			title.Write(n.Segment.Value(source))
			if n.SoftLineBreak() || n.HardLineBreak() {
				title.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})

	task.Title = strings.Join(strings.Fields(title.String()), " ")
	return task
}

// Render writes tasks back as a flat markdown list.
func Render(tasks []model.Task) []byte {
	var b bytes.Buffer
	for _, task := range tasks {
		b.WriteString(RenderLine(task))
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// RenderLine formats a single task without a trailing newline.
func RenderLine(task model.Task) string {
	switch {
	case task.Checkbox && task.Done:
		return "- [x] " + task.Title
	case task.Checkbox:
		return "- [ ] " + task.Title
	default:
		return "- " + task.Title
	}
}
