package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// CLI admin contra la API del registry. Toda operación pega a /api con un
// Bearer token; no toca la base directamente.

type client struct {
	BaseURL   string
	Token     string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func (c *client) expect2xx(op string, status int, body []byte) error {
	if status/100 != 2 {
		return fmt.Errorf("%s fallo: status=%d body=%s", op, status, string(body))
	}
	return nil
}

func main() {
	var (
		baseURL = envOr("POTATOREG_URL", "http://localhost:8080")
		token   = envOr("POTATOREG_TOKEN", "")
		out     = envOr("POTATOREG_OUT", "text")
	)

	cl := &client{HTTP: &http.Client{Timeout: 30 * time.Second}}

	root := &cobra.Command{
		Use:   "potatoregctl",
		Short: "CLI admin para potatoreg (vía /api)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return fmt.Errorf("falta token (flag --token o env POTATOREG_TOKEN)")
			}
			cl.BaseURL, cl.Token, cl.OutFormat = baseURL, token, out
			return nil
		},
	}
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del registry (env POTATOREG_URL)")
	root.PersistentFlags().StringVar(&token, "token", token, "Bearer token (env POTATOREG_TOKEN)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	root.AddCommand(usersCmd(cl), packagesCmd(cl), rolesCmd(cl))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usersCmd(cl *client) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Gestión de cuentas",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Listar cuentas",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/api/users/", nil)
			if err != nil {
				return err
			}
			if err := cl.expect2xx("users list", status, body); err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	var (
		username, email, password string
		superuser, svcAccount     bool
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Crear una cuenta",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("--username es requerido")
			}
			payload := map[string]any{
				"username":        username,
				"email":           email,
				"password":        password,
				"superuser":       superuser,
				"service_account": svcAccount,
			}
			b, _ := json.Marshal(payload)
			status, body, err := cl.do("POST", "/api/users/", b)
			if err != nil {
				return err
			}
			if err := cl.expect2xx("users create", status, body); err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	createCmd.Flags().StringVar(&username, "username", "", "Username (requerido)")
	createCmd.Flags().StringVar(&email, "email", "", "Email")
	createCmd.Flags().StringVar(&password, "password", "", "Password (opcional para service accounts)")
	createCmd.Flags().BoolVar(&superuser, "superuser", false, "Cuenta superuser")
	createCmd.Flags().BoolVar(&svcAccount, "service-account", false, "Cuenta de servicio (CI)")

	var tokenUserID string
	genTokenCmd := &cobra.Command{
		Use:   "generate-token",
		Short: "Generar un token opaco para una cuenta (se muestra una sola vez)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tokenUserID == "" {
				return fmt.Errorf("--id es requerido")
			}
			status, body, err := cl.do("POST", "/api/users/"+tokenUserID+"/generate-token", nil)
			if err != nil {
				return err
			}
			if err := cl.expect2xx("generate-token", status, body); err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	genTokenCmd.Flags().StringVar(&tokenUserID, "id", "", "ID de la cuenta")

	users.AddCommand(listCmd, createCmd, genTokenCmd)
	return users
}

func packagesCmd(cl *client) *cobra.Command {
	packages := &cobra.Command{
		Use:   "packages",
		Short: "Gestión de paquetes",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Listar paquetes visibles",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/api/packages/", nil)
			if err != nil {
				return err
			}
			if err := cl.expect2xx("packages list", status, body); err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	var (
		yankName, yankVersion, yankReason string
	)
	yankCmd := &cobra.Command{
		Use:   "yank",
		Short: "Marcar una versión como yanked (desaparece del índice simple)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if yankName == "" || yankVersion == "" {
				return fmt.Errorf("--name y --version son requeridos")
			}
			b, _ := json.Marshal(map[string]string{"reason": yankReason})
			status, body, err := cl.do("PUT", "/api/packages/"+yankName+"/yank/"+yankVersion, b)
			if err != nil {
				return err
			}
			if err := cl.expect2xx("yank", status, body); err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	yankCmd.Flags().StringVar(&yankName, "name", "", "Nombre del paquete")
	yankCmd.Flags().StringVar(&yankVersion, "version", "", "Versión a yankear")
	yankCmd.Flags().StringVar(&yankReason, "reason", "", "Motivo (opcional)")

	var delName string
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Borrar un paquete completo (metadata + archivos)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if delName == "" {
				return fmt.Errorf("--name es requerido")
			}
			status, body, err := cl.do("DELETE", "/api/packages/"+delName, nil)
			if err != nil {
				return err
			}
			if err := cl.expect2xx("delete", status, body); err != nil {
				return err
			}
			if cl.OutFormat == "text" {
				fmt.Println("ok")
				return nil
			}
			cl.print(status, body)
			return nil
		},
	}
	deleteCmd.Flags().StringVar(&delName, "name", "", "Nombre del paquete")

	var labelsName string
	var labels []string
	labelsCmd := &cobra.Command{
		Use:   "set-labels",
		Short: "Setear los labels de visibilidad de un paquete",
		RunE: func(cmd *cobra.Command, args []string) error {
			if labelsName == "" {
				return fmt.Errorf("--name es requerido")
			}
			b, _ := json.Marshal(map[string]any{"labels": labels})
			status, body, err := cl.do("PUT", "/api/rbac/packages/"+labelsName+"/labels", b)
			if err != nil {
				return err
			}
			if err := cl.expect2xx("set-labels", status, body); err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	labelsCmd.Flags().StringVar(&labelsName, "name", "", "Nombre del paquete")
	labelsCmd.Flags().StringSliceVar(&labels, "label", nil, "Label (repetible; vacío = público)")

	packages.AddCommand(listCmd, yankCmd, deleteCmd, labelsCmd)
	return packages
}

func rolesCmd(cl *client) *cobra.Command {
	roles := &cobra.Command{
		Use:   "roles",
		Short: "Gestión de roles y asignaciones",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Listar roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/api/rbac/roles", nil)
			if err != nil {
				return err
			}
			if err := cl.expect2xx("roles list", status, body); err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	var roleName string
	var roleLabels []string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Crear un rol con sus labels permitidos",
		RunE: func(cmd *cobra.Command, args []string) error {
			if roleName == "" {
				return fmt.Errorf("--name es requerido")
			}
			b, _ := json.Marshal(map[string]any{"name": roleName, "allowed_labels": roleLabels})
			status, body, err := cl.do("POST", "/api/rbac/roles", b)
			if err != nil {
				return err
			}
			if err := cl.expect2xx("roles create", status, body); err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	createCmd.Flags().StringVar(&roleName, "name", "", "Nombre del rol")
	createCmd.Flags().StringSliceVar(&roleLabels, "label", nil, "Label permitido (repetible)")

	var assignUserID string
	var assignRoleIDs []string
	assignCmd := &cobra.Command{
		Use:   "assign",
		Short: "Reemplazar los roles de una cuenta",
		RunE: func(cmd *cobra.Command, args []string) error {
			if assignUserID == "" {
				return fmt.Errorf("--user es requerido")
			}
			b, _ := json.Marshal(map[string]any{"role_ids": assignRoleIDs})
			status, body, err := cl.do("POST", "/api/rbac/users/"+assignUserID+"/roles", b)
			if err != nil {
				return err
			}
			if err := cl.expect2xx("roles assign", status, body); err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	assignCmd.Flags().StringVar(&assignUserID, "user", "", "ID de la cuenta")
	assignCmd.Flags().StringSliceVar(&assignRoleIDs, "role", nil, "ID de rol (repetible; vacío = quitar todos)")

	roles.AddCommand(listCmd, createCmd, assignCmd)
	return roles
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
