package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dropDatabas3/hellocms/internal/app"
	"github.com/dropDatabas3/hellocms/internal/bootstrap"
)

func newInstallCmd(g *globals) *cobra.Command {
	var (
		opts        bootstrap.Options
		askPassword bool
	)
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Crea el usuario administrador inicial",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if opts.Email == "" {
				email, err := prompt(out, cmd.InOrStdin(), "Admin email: ")
				if err != nil {
					return err
				}
				opts.Email = email
			}
			if askPassword && opts.Password == "" {
				pw, err := readPassword(out)
				if err != nil {
					return err
				}
				opts.Password = pw
			}

			conn, err := app.OpenStore(ctx, g.cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			if _, err := app.Migrate(ctx, conn); err != nil {
				return err
			}
			svc, err := app.NewUsersService(g.cfg, conn)
			if err != nil {
				return err
			}

			res, err := bootstrap.Install(ctx, svc, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "admin created: id=%s email=%s\n", res.UserID, res.Email)
			if res.GeneratedPassword != "" {
				fmt.Fprintf(out, "generated password (shown once): %s\n", res.GeneratedPassword)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "nombre del admin")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email del admin")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password del admin (vacío = se genera)")
	cmd.Flags().BoolVar(&askPassword, "ask-password", false, "pedir el password por terminal")
	return cmd
}

func prompt(out io.Writer, in io.Reader, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword pide el password sin eco y lo confirma.
func readPassword(out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--ask-password requires a terminal")
	}
	fmt.Fprint(out, "Admin password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	fmt.Fprint(out, "Confirm password: ")
	confirm, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if string(pw) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pw), nil
}
