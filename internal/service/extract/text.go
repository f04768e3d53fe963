package extract

import (
	"context"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"
)

// newTextHandler reads files verbatim through the eino file loader.
func newTextHandler(ctx context.Context) (handler, error) {
	loader, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      parser.TextParser{},
	})
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, path string) (string, error) {
		docs, err := loader.Load(ctx, document.Source{URI: path})
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		for _, doc := range docs {
			if doc == nil {
				continue
			}
			sb.WriteString(doc.Content)
		}
		return sb.String(), nil
	}, nil
}
