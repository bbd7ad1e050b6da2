package cli

import (
	"fmt"

	"github.com/dukerupert/clientbook/internal/push"
)

type VapidCmd struct{}

func (c *VapidCmd) Run(ctx *Context) error {
	pub, priv, err := push.GenerateVAPIDKeys()
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "vapid_public_key: %s\nvapid_private_key: %s\n", pub, priv)
	return nil
}
