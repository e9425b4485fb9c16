package rbac

// Default policy for the progression engine. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"quiz:view",
		"quiz:access-check",
		"attempt:create",
		"attempt:save",
		"attempt:submit",
		"attempt:view-own",
		"lesson:view",
		"lesson:complete",
		"remedial:view-own",
		"grades:view-own",
	},
	"teacher": {
		"quiz:view",
		"quiz:create",
		"quiz:access-check",
		"lesson:view",
		"lesson:create",
		"attempt:view-all",
		"attempt:grade",
		"remedial:view-all",
		"grades:view-all",
		"subject:create",
	},
	"admin": {
		"*", // everything
	},
}
