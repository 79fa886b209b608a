package command

import (
	"fmt"
	"strings"
)

// reply builds the markdown a command sends back. Transports render it
// for their own medium.
type reply struct {
	blocks []string
}

func newReply(title string) *reply {
	return &reply{blocks: []string{fmt.Sprintf("⚙️ **%s**\n", title)}}
}

func (r *reply) section(name string) *reply {
	r.blocks = append(r.blocks, fmt.Sprintf("\n**%s**", name))
	return r
}

func (r *reply) field(key string, value any) *reply {
	r.blocks = append(r.blocks, fmt.Sprintf("`%s` = `%v`", key, value))
	return r
}

func (r *reply) text(s string) *reply {
	r.blocks = append(r.blocks, s)
	return r
}

func (r *reply) bullets(items ...string) *reply {
	for _, item := range items {
		r.blocks = append(r.blocks, "› "+item)
	}
	return r
}

func (r *reply) usage(syntax string, examples ...string) *reply {
	r.blocks = append(r.blocks, fmt.Sprintf("**Usage**: `%s`", syntax))
	if len(examples) > 0 {
		r.blocks = append(r.blocks, "**Examples**:")
		r.bullets(examples...)
	}
	return r
}

func (r *reply) String() string {
	return strings.Join(r.blocks, "\n") + "\n"
}

func done(format string, args ...any) string {
	return "✅ " + fmt.Sprintf(format, args...) + "\n"
}

func failed(command string, err error) string {
	return fmt.Sprintf("❌ **/%s failed**: %v\n", command, err)
}
