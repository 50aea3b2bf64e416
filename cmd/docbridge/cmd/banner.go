package cmd

import (
	"fmt"

	"github.com/spiredms/docbridge/api"
)

const banner = `
      _            _          _     _
   __| | ___   ___| |__  _ __(_) __| | __ _  ___
  / _` + "`" + ` |/ _ \ / __| '_ \| '__| |/ _` + "`" + ` |/ _` + "`" + ` |/ _ \
 | (_| | (_) | (__| |_) | |  | | (_| | (_| |  __/
  \__,_|\___/ \___|_.__/|_|  |_|\__,_|\__, |\___|
                                      |___/
`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Documentum REST Services Gateway - Version %s\x1b[0m\n\n", api.Version)
}
