package report

// baseTemplate defines the page shell; each report supplies "title" and "body"
const baseTemplate = `{{define "page"}}<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{template "title" .}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 1200px;
            margin: 0 auto;
            padding: 20px;
            background-color: #f5f5f5;
        }
        .container {
            background-color: white;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
            padding: 30px;
        }
        h1, h2, h3 { color: #2c3e50; }
        .header {
            border-bottom: 3px solid #2563EB;
            padding-bottom: 20px;
            margin-bottom: 30px;
        }
        .status {
            display: inline-block;
            padding: 5px 15px;
            border-radius: 4px;
            font-weight: bold;
            text-transform: uppercase;
            color: white;
        }
        .status.success { background-color: #10B981; }
        .status.failure { background-color: #EF4444; }
        .info-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(250px, 1fr));
            gap: 20px;
            margin: 20px 0;
        }
        .info-card {
            background-color: #f8f9fa;
            padding: 15px;
            border-radius: 4px;
            border-left: 4px solid #2563EB;
        }
        .info-card h3 {
            margin: 0 0 10px 0;
            color: #666;
            font-size: 0.9em;
            text-transform: uppercase;
        }
        .info-card p { margin: 0; font-size: 1.1em; font-weight: 500; }
        .section { margin: 30px 0; }
        .drive-group h3 {
            background-color: #f0f0f0;
            padding: 10px;
            margin: 0 0 15px 0;
            border-radius: 4px;
        }
        table { width: 100%; border-collapse: collapse; }
        th, td { padding: 8px 10px; text-align: left; border-bottom: 1px solid #e0e0e0; }
        th { background-color: #f8f9fa; font-weight: 600; color: #666; }
        td.num { font-family: monospace; text-align: right; }
        tr.changed td { background-color: #FFF7E6; }
        .error-section {
            background-color: #FEE;
            border: 1px solid #FCC;
            border-radius: 4px;
            padding: 15px;
            margin: 20px 0;
        }
        .error-section h3 { color: #C00; margin-top: 0; }
        pre { background-color: #f4f4f4; padding: 10px; border-radius: 4px; overflow-x: auto; }
        .footer {
            margin-top: 40px;
            padding-top: 20px;
            border-top: 1px solid #e0e0e0;
            text-align: center;
            color: #666;
            font-size: 0.9em;
        }
    </style>
</head>
<body>
    <div class="container">
{{template "body" .}}
{{with .SystemInfo}}{{if .Hostname}}
        <div class="section">
            <h2>Bench Host</h2>
            <div class="info-grid">
                <div class="info-card"><h3>Hostname</h3><p>{{.Hostname}}</p></div>
                <div class="info-card"><h3>Platform</h3><p>{{.Platform}} ({{.Architecture}})</p></div>
                <div class="info-card"><h3>CPU</h3><p>{{.CPUModel}} x{{.CPUCores}}</p></div>
                <div class="info-card"><h3>Memory</h3><p>{{.TotalMemory}}</p></div>
            </div>
            {{if .Volumes}}
            <table>
                <thead><tr><th>Volume</th><th>Filesystem</th><th>Size</th><th>Used</th></tr></thead>
                <tbody>
                {{range .Volumes}}<tr><td>{{.Mountpoint}}</td><td>{{.Filesystem}}</td><td>{{.Total}}</td><td>{{printf "%.1f" .UsedPercent}}%</td></tr>
                {{end}}
                </tbody>
            </table>
            {{end}}
        </div>
{{end}}{{end}}
        <div class="footer">
            <p>Generated by qual on {{formatTime .GeneratedAt}}</p>
        </div>
    </div>
</body>
</html>
{{end}}`

const runBody = `{{define "title"}}SMART Snapshot Report - Run #{{.Run.ID}}{{end}}
{{define "body"}}
        <div class="header">
            <h1>SMART Snapshot Report</h1>
            <p>Run ID: #{{.Run.ID}} | Tool: {{.Run.Tool}} | Prefix: {{if .Run.Prefix}}{{.Run.Prefix}}{{else}}(none){{end}} |
               Status: <span class="status {{statusClass .Run.Success}}">{{statusText .Run.Success}}</span>
            </p>
        </div>

        <div class="info-grid">
            <div class="info-card"><h3>Start Time</h3><p>{{formatTime .Run.StartTime}}</p></div>
            <div class="info-card"><h3>End Time</h3><p>{{if .Run.EndTime}}{{formatTime .Run.EndTime}}{{else}}Still Running{{end}}</p></div>
            <div class="info-card"><h3>Duration</h3><p>{{if .Run.EndTime}}{{formatDuration .Run.Duration}}{{else}}N/A{{end}}</p></div>
            <div class="info-card"><h3>Snapshot</h3><p>{{if .Run.SnapshotPath}}{{.Run.SnapshotPath}}{{else}}N/A{{end}}</p></div>
        </div>

        {{if .Run.Error}}
        <div class="error-section">
            <h3>Error Details</h3>
            <pre>{{.Run.Error}}</pre>
        </div>
        {{end}}

        {{if .Checks}}
        <div class="section">
            <h2>Checks</h2>
            <table>
                <thead><tr><th>Kind</th><th>Drive</th><th>Result</th><th>Message</th></tr></thead>
                <tbody>
                {{range .Checks}}
                <tr>
                    <td>{{.Kind}}</td>
                    <td>{{.Drive}}</td>
                    <td><span class="status {{statusClass .Passed}}">{{statusText .Passed}}</span></td>
                    <td>{{.Message}}</td>
                </tr>
                {{end}}
                </tbody>
            </table>
        </div>
        {{end}}

        <div class="section">
            <h2>SMART Raw Values</h2>
            {{range .Drives}}
            <div class="drive-group">
                <h3>{{.Name}}</h3>
                <table>
                    <thead><tr><th>Attribute</th><th>Raw Value</th><th>Raw Hex</th></tr></thead>
                    <tbody>
                    {{range .Values}}<tr><td>{{.Attribute}}</td><td class="num">{{.Raw}}</td><td class="num">{{.Hex}}</td></tr>
                    {{end}}
                    </tbody>
                </table>
            </div>
            {{else}}
            <p>No values were recorded for this run.</p>
            {{end}}
        </div>
{{end}}`

const comparisonBody = `{{define "title"}}SMART Comparison - Run #{{.Before.ID}} vs #{{.After.ID}}{{end}}
{{define "body"}}
        <div class="header">
            <h1>SMART Comparison</h1>
            <p>Before: #{{.Before.ID}} {{.Before.Prefix}} ({{formatTime .Before.StartTime}}) |
               After: #{{.After.ID}} {{.After.Prefix}} ({{formatTime .After.StartTime}})</p>
        </div>

        <div class="section">
            {{range .Drives}}
            <div class="drive-group">
                <h3>{{.Name}}</h3>
                <table>
                    <thead><tr><th>Attribute</th><th>Before</th><th>After</th><th>Delta</th></tr></thead>
                    <tbody>
                    {{range .Rows}}<tr class="{{deltaClass .Delta}}"><td>{{.Attribute}}{{if .Missing}} (missing {{.Missing}}){{end}}</td><td class="num">{{.Before}}</td><td class="num">{{.After}}</td><td class="num">{{.Delta}}</td></tr>
                    {{end}}
                    </tbody>
                </table>
            </div>
            {{else}}
            <p>Neither run recorded any values.</p>
            {{end}}
        </div>
{{end}}`
