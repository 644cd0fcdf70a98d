package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/brewlog/internal/local"
	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/ux"
)

// linePrompter answers login prompts from preset flag values, reading
// whatever is missing one line at a time.
type linePrompter struct {
	in     *bufio.Reader
	ui     *ux.Printer
	preset local.LoginRequest
}

func (p *linePrompter) RequestLogin(ctx context.Context) (local.LoginRequest, error) {
	req := p.preset
	var err error
	if req.Profile.NickName == "" {
		if req.Profile.NickName, err = p.ask("昵称: "); err != nil {
			return local.LoginRequest{}, err
		}
	}
	if req.Code == "" {
		if req.Code, err = p.ask("登录码: "); err != nil {
			return local.LoginRequest{}, err
		}
	}
	return req, nil
}

func (p *linePrompter) ask(prompt string) (string, error) {
	p.ui.Prompt(prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(prompt, ": "), err)
	}
	return strings.TrimSpace(line), nil
}

func newLoginCmd(c *cli) *cobra.Command {
	var req local.LoginRequest
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and cache the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			if req.Provider == "" {
				req.Provider = a.cfg.Remote.Provider
			}
			a.prompter.preset = req

			sess, err := a.session.Login(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOut {
				return printJSON(c.out, sess.Identity())
			}
			c.ui.Success("logged in as %s (%s)", sess.Profile.NickName, sess.OpenID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Profile.NickName, "nick", "", "display name")
	cmd.Flags().StringVar(&req.Profile.AvatarURL, "avatar", "", "avatar URL")
	cmd.Flags().StringVar(&req.Code, "code", "", "login code from the identity provider")
	cmd.Flags().StringVar(&req.Provider, "provider", "", "identity provider (default from config)")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the cached session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			if err := a.session.ClearProfile(cmd.Context()); err != nil {
				return err
			}
			c.ui.Success("logged out")
			return nil
		},
	}
}

func newProfileCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the cached session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			sess, ok, err := a.session.Current(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				c.ui.Warning("not logged in")
				return nil
			}
			if c.jsonOut {
				return printJSON(c.out, sess.Identity())
			}
			c.ui.Info("nickname: %s", sess.Profile.NickName)
			c.ui.Info("avatar:   %s", sess.Profile.AvatarURL)
			c.ui.Info("openid:   %s", sess.OpenID)
			return nil
		},
	}

	var p model.Profile
	set := &cobra.Command{
		Use:   "set",
		Short: "Change the display profile here and on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			if err := a.session.UpdateProfile(cmd.Context(), p); err != nil {
				return err
			}
			c.ui.Success("profile saved")
			return nil
		},
	}
	set.Flags().StringVar(&p.NickName, "nick", "", "display name")
	set.Flags().StringVar(&p.AvatarURL, "avatar", "", "avatar URL")
	cmd.AddCommand(set)
	return cmd
}
