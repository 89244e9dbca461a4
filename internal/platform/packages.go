package platform

// toolPackages lists, per tool, the package that ships it. The "" key is
// the name used when the family has no specific entry.
var toolPackages = map[string]map[string]string{
	"rpm2cpio": {
		"":           "rpm",
		FamilyDebian: "rpm2cpio",
		FamilyArch:   "rpm-tools",
	},
	"ar": {
		"": "binutils",
	},
	"unzip": {
		"": "unzip",
	},
	"cabextract": {
		"": "cabextract",
	},
	"unxz": {
		"":           "xz",
		FamilyDebian: "xz-utils",
	},
	"cpio": {
		"": "cpio",
	},
}

// installCommands maps a family to its package manager's install command.
var installCommands = map[string]string{
	FamilyDebian: "apt-get install",
	FamilyRHEL:   "yum install",
	FamilyFedora: "dnf install",
	FamilySUSE:   "zypper install",
	FamilyArch:   "pacman -S",
	FamilyAlpine: "apk add",
	FamilyGentoo: "emerge",
}

// PackageFor returns the name of the package that usually provides tool on
// this platform, or "" if the tool is not packaged separately.
func (i *Info) PackageFor(tool string) string {
	pkgs, ok := toolPackages[tool]
	if !ok {
		return ""
	}
	if i != nil {
		if pkg, ok := pkgs[i.Family]; ok && i.IsLinux() {
			return pkg
		}
	}
	return pkgs[""]
}

// InstallCommand returns the command that installs pkg with the host's
// package manager, or "" when the package manager is unknown.
func (i *Info) InstallCommand(pkg string) string {
	if i == nil || pkg == "" {
		return ""
	}
	if i.IsMacOS() {
		return "brew install " + pkg
	}
	if cmd, ok := installCommands[i.Family]; ok && i.IsLinux() {
		return cmd + " " + pkg
	}
	return ""
}
