package backend

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	dataPrefix = "data: "
	// DoneSentinel 是上游流结束标记，Parser 会原样返回给调用方，但它不是 JSON。
	DoneSentinel = "[DONE]"
)

// Parser 把上游字节流切分为 `data: ` 行的负载，按到达顺序逐条返回。
//
// UTF-8 解码是增量的：被拆到两次 Read 中的多字节字符会被正确拼接，
// 末尾不完整的行会保留在 bufio.Reader 中，与下一次读取的数据拼接后再切行。
// Parser 只能被消费一次，不可重启，也不是并发安全的。
type Parser struct {
	reader *bufio.Reader
	done   bool
	// drain 为 true 时 DoneSentinel 不结束序列，一直读到上游 EOF。
	drain bool
}

// NewParser 返回在第一个 DoneSentinel 处结束的 Parser，用于流式转发。
func NewParser(body io.Reader) *Parser {
	decoded := transform.NewReader(body, unicode.UTF8BOM.NewDecoder())
	return &Parser{reader: bufio.NewReader(decoded)}
}

// NewDrainParser 返回读到上游 EOF 才结束的 Parser，DoneSentinel 仍会原样返回。
// 用于需要汇总完整上游序列的场景。
func NewDrainParser(body io.Reader) *Parser {
	p := NewParser(body)
	p.drain = true
	return p
}

// Next 返回下一条 data 负载；遇到 DoneSentinel 时返回它，之后返回 io.EOF
// （drain 模式下继续读取）。上游 EOF 时返回 io.EOF。
func (p *Parser) Next() (string, error) {
	for !p.done {
		line, err := p.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		atEOF := err != nil
		if atEOF {
			p.done = true
			if line == "" {
				break
			}
		}

		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		data, ok := strings.CutPrefix(line, dataPrefix)
		if !ok {
			continue
		}
		if data == DoneSentinel && !p.drain {
			p.done = true
		}
		return data, nil
	}
	return "", io.EOF
}

// IsDone 判断负载是否为结束标记。
func IsDone(data string) bool {
	return data == DoneSentinel
}
