package main

import (
	"context"
	"fmt"
	"log"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func hostCmd(a *app) *cobra.Command {
	var hostAddr string

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Anunciar una sesión en la LAN",
		Long: `Escucha consultas de búsqueda en el puerto de anuncio y responde a
cada una con la descripción de la sesión, hasta recibir SIGINT o SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var addr netip.AddrPort
			if hostAddr != "" {
				var err error
				addr, err = netip.ParseAddrPort(hostAddr)
				if err != nil {
					return fmt.Errorf("--addr inválida: %w", err)
				}
			}

			adv, err := a.cfg.Advertisement(addr)
			if err != nil {
				return err
			}
			e, err := a.engine()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			start := time.Now()
			log.Printf("🔹 Iniciando host (Owner: %s | Puerto: %d | GameID: %d)",
				adv.OwnerName, a.cfg.AnnouncePort, a.cfg.GameID)

			if err := e.Host(ctx, adv); err != nil {
				return err
			}

			log.Printf("👋 Host detenido correctamente (Uptime: %s)", time.Since(start).Round(time.Second))
			return nil
		},
	}

	cmd.Flags().StringVar(&hostAddr, "addr", "", "Dirección IP:puerto del servidor de juego a anunciar")

	return cmd
}
